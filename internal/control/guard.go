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

import (
	"sort"
	"time"
)

// ApplySafetyOverrides adjusts raw hysteresis decisions so the pump is
// never starved. In cooling mode fallback zones are forced open and all
// other valves closed, regardless of hysteresis. Otherwise the minimum-open
// floor is enforced by forcing extra zones open: fallback zones first, then
// the rest; within each class zones currently under reopen suppression come
// last, and configuration order breaks the remaining ties. The input slice
// is left untouched.
func ApplySafetyOverrides(
	zones []ZoneReading, decisions []Decision, mode Mode, minOpen int, now time.Time,
) []Decision {
	out := make([]Decision, len(decisions))
	copy(out, decisions)

	if mode == ModeCool {
		for i, z := range zones {
			if !z.HasValve {
				continue
			}
			if z.Fallback {
				out[i] = DecisionOpen
			} else {
				out[i] = DecisionClose
			}
		}
		return out
	}

	valved := 0
	open := 0
	for i, z := range zones {
		if !z.HasValve {
			continue
		}
		valved++
		if willBeOpen(z, out[i]) {
			open++
		}
	}

	floor := minOpen
	if valved < floor {
		floor = valved
	}
	if open >= floor {
		return out
	}

	var candidates []int
	for i, z := range zones {
		if z.HasValve && !willBeOpen(z, out[i]) {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return forceRank(zones[candidates[a]], now) < forceRank(zones[candidates[b]], now)
	})

	for _, i := range candidates {
		if open >= floor {
			break
		}
		out[i] = DecisionOpen
		open++
	}
	return out
}

// willBeOpen: a skip decision leaves the valve in its confirmed state.
func willBeOpen(z ZoneReading, d Decision) bool {
	return d == DecisionOpen || (d == DecisionSkip && z.ValveOpen)
}

func forceRank(z ZoneReading, now time.Time) int {
	rank := 0
	if !z.Fallback {
		rank += 2
	}
	if now.Before(z.SuppressedUntil) {
		rank++
	}
	return rank
}
