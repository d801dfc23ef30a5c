/*
 * Copyright (c) 2026. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZVC project.
 *
 * MZVC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package control

import "time"

type HysteresisParams struct {
	// CloseAnticipation closes an open valve this many degrees before the
	// nominal closing threshold, compensating for slow physical actuators.
	CloseAnticipation float64
	// ReopenSuppression is how long an anticipation-closed valve must stay
	// closed even if the opening condition comes back.
	ReopenSuppression time.Duration
}

// EvaluateZone runs one hysteresis step for a zone and returns the valve
// decision together with the updated reopen-suppression deadline. The
// decision depends only on the previous valve state, the current reading
// and the single suppression timestamp.
func EvaluateZone(z ZoneReading, p HysteresisParams, now time.Time) (Decision, time.Time) {
	if !z.HasCurrent {
		return DecisionSkip, z.SuppressedUntil
	}

	lower, upper := z.Bounds()

	if !z.ValveOpen {
		if now.Before(z.SuppressedUntil) {
			// Anticipation cooldown: hold closed regardless of temperature.
			return DecisionClose, z.SuppressedUntil
		}
		if z.Current < lower {
			return DecisionOpen, time.Time{}
		}
		return DecisionClose, time.Time{}
	}

	if p.CloseAnticipation > 0 && z.Current > upper-p.CloseAnticipation {
		return DecisionClose, now.Add(p.ReopenSuppression)
	}
	if z.Current > upper {
		return DecisionClose, z.SuppressedUntil
	}
	// Inside the deadband: an open valve stays open.
	return DecisionOpen, z.SuppressedUntil
}
