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

// TransitionPlan is the set of actuator commands one cycle must issue.
// With DeferClose set, the opens are dispatched immediately and the closes
// only after the transition delay, so flow is never cut while new paths are
// still establishing.
type TransitionPlan struct {
	ToOpen     []string
	ToClose    []string
	DeferClose bool
}

func (p TransitionPlan) Empty() bool {
	return len(p.ToOpen) == 0 && len(p.ToClose) == 0
}

// PlanTransitions diffs the guarded decisions against the confirmed valve
// states. Closing is deferred only when something is opening while the
// system sits at or below its safety floor before the opens take effect.
func PlanTransitions(zones []ZoneReading, decisions []Decision, minOpen int) TransitionPlan {
	var plan TransitionPlan
	currentOpen := 0

	for i, z := range zones {
		if !z.HasValve {
			continue
		}
		if z.ValveOpen {
			currentOpen++
		}
		switch decisions[i] {
		case DecisionOpen:
			if !z.ValveOpen {
				plan.ToOpen = append(plan.ToOpen, z.Name)
			}
		case DecisionClose:
			if z.ValveOpen {
				plan.ToClose = append(plan.ToClose, z.Name)
			}
		}
	}

	plan.DeferClose = len(plan.ToOpen) > 0 && len(plan.ToClose) > 0 && currentOpen <= minOpen
	return plan
}
