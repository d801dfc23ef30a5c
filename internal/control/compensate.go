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

import "math"

type CompensationParams struct {
	// Factor scales a zone's deficit/surplus into extra demand on the
	// central unit, within [0,1].
	Factor float64
	// AllSatisfiedWeight drives the holding-mode interpolation over zone
	// targets (0 = min, 50 = avg, 100 = max).
	AllSatisfiedWeight int
	MinTarget          float64
	MaxTarget          float64
}

// MainTarget is the compensator outcome. Valid is false when no target can
// be derived this cycle (no valved zone with a reading, or every needy zone
// lacks a deficit/surplus in the active direction); the previous desired
// target then stays in force and no external write happens.
type MainTarget struct {
	Value   float64
	Valid   bool
	Holding bool
}

// ComputeMainTarget derives the central unit's desired target from the zone
// snapshot. Zones without a valve do not participate. When any zone is
// outside its satisfied band the compensation branch is selected, even if
// the only needy zones are overheated; holding-mode aggregation runs only
// with every zone satisfied.
func ComputeMainTarget(zones []ZoneReading, mode Mode, p CompensationParams) MainTarget {
	var targets []float64
	var desired []float64
	anyNeedy := false

	for _, z := range zones {
		if !z.HasValve || !z.HasCurrent {
			continue
		}
		targets = append(targets, z.Target)

		if !z.NeedsAction() {
			continue
		}
		anyNeedy = true

		switch mode {
		case ModeHeat:
			if deficit := z.Target - z.Current; deficit > 0 {
				desired = append(desired, z.Target+p.Factor*deficit)
			}
		case ModeCool:
			if surplus := z.Current - z.Target; surplus > 0 {
				desired = append(desired, z.Target-p.Factor*surplus)
			}
		}
	}

	if len(targets) == 0 {
		return MainTarget{}
	}

	if anyNeedy {
		if len(desired) == 0 {
			// Needy zones exist but none in the active direction (e.g. an
			// overheated zone while heating). Not holding, nothing to write.
			return MainTarget{}
		}
		best := desired[0]
		for _, v := range desired[1:] {
			if (mode == ModeHeat && v > best) || (mode == ModeCool && v < best) {
				best = v
			}
		}
		return MainTarget{Value: p.clamp(best), Valid: true}
	}

	holding, ok := Aggregate(targets, AggregateWeighted, p.AllSatisfiedWeight)
	if !ok {
		return MainTarget{}
	}
	return MainTarget{Value: p.clamp(holding), Valid: true, Holding: true}
}

func (p CompensationParams) clamp(v float64) float64 {
	v = math.Round(v*10) / 10
	return math.Max(p.MinTarget, math.Min(p.MaxTarget, v))
}

// ShouldApply gates the external "set main target" write: the first
// computed target always goes out, later ones only when they moved at least
// threshold away from the last applied value.
func ShouldApply(desired float64, lastApplied *float64, threshold float64) bool {
	return lastApplied == nil || math.Abs(desired-*lastApplied) >= threshold
}
