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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countOpen(zones []ZoneReading, decisions []Decision) int {
	n := 0
	for i, z := range zones {
		if z.HasValve && willBeOpen(z, decisions[i]) {
			n++
		}
	}
	return n
}

func TestMinimumOpenFloorWithFallbackFirst(t *testing.T) {
	// Three satisfied zones all closing, floor of 2: exactly two forced
	// open, the fallback zone among them.
	zones := []ZoneReading{
		satisfiedZone("a", 20.0),
		satisfiedZone("b", 20.0),
		satisfiedZone("c", 20.0),
	}
	zones[1].Fallback = true
	decisions := []Decision{DecisionClose, DecisionClose, DecisionClose}

	out := ApplySafetyOverrides(zones, decisions, ModeHeat, 2, time.Now())

	assert.Equal(t, 2, countOpen(zones, out))
	assert.Equal(t, DecisionOpen, out[1], "fallback zone must be among the forced-open set")
	assert.Equal(t, []Decision{DecisionClose, DecisionClose, DecisionClose}, decisions, "input untouched")
}

func TestFloorCappedByValvedZoneCount(t *testing.T) {
	zones := []ZoneReading{satisfiedZone("a", 20.0), satisfiedZone("b", 20.0)}
	zones[0].Fallback = true
	decisions := []Decision{DecisionClose, DecisionClose}

	out := ApplySafetyOverrides(zones, decisions, ModeHeat, 5, time.Now())
	assert.Equal(t, 2, countOpen(zones, out))
}

func TestFloorSatisfiedByAlreadyOpenValves(t *testing.T) {
	zones := []ZoneReading{satisfiedZone("a", 20.0), satisfiedZone("b", 20.0)}
	zones[0].Fallback = true
	zones[1].ValveOpen = true
	decisions := []Decision{DecisionClose, DecisionSkip} // skip keeps b open

	out := ApplySafetyOverrides(zones, decisions, ModeHeat, 1, time.Now())
	assert.Equal(t, DecisionClose, out[0], "no forcing needed, b already counts")
}

func TestSuppressedZonesForcedLast(t *testing.T) {
	now := time.Now()
	zones := []ZoneReading{
		satisfiedZone("a", 20.0),
		satisfiedZone("b", 20.0),
	}
	zones[0].SuppressedUntil = now.Add(time.Minute)
	decisions := []Decision{DecisionClose, DecisionClose}

	out := ApplySafetyOverrides(zones, decisions, ModeHeat, 1, now)
	assert.Equal(t, DecisionClose, out[0], "suppressed zone passed over")
	assert.Equal(t, DecisionOpen, out[1])
}

func TestSuppressionYieldsToFloorWhenAlone(t *testing.T) {
	now := time.Now()
	z := satisfiedZone("a", 20.0)
	z.Fallback = true
	z.SuppressedUntil = now.Add(time.Minute)

	out := ApplySafetyOverrides([]ZoneReading{z}, []Decision{DecisionClose}, ModeHeat, 1, now)
	assert.Equal(t, DecisionOpen, out[0], "floor wins over suppression when nothing else can open")
}

func TestCoolingForcesExactlyFallbackSet(t *testing.T) {
	zones := []ZoneReading{
		satisfiedZone("a", 20.0),
		satisfiedZone("b", 20.0),
		satisfiedZone("c", 20.0),
	}
	zones[0].Fallback = true
	zones[2].Fallback = true
	zones[1].ValveOpen = true
	decisions := []Decision{DecisionClose, DecisionOpen, DecisionClose}

	out := ApplySafetyOverrides(zones, decisions, ModeCool, 1, time.Now())

	require.Len(t, out, 3)
	assert.Equal(t, DecisionOpen, out[0])
	assert.Equal(t, DecisionClose, out[1])
	assert.Equal(t, DecisionOpen, out[2])
}

func TestValvelessZonesIgnoredByGuard(t *testing.T) {
	display := satisfiedZone("display", 20.0)
	display.HasValve = false
	valved := satisfiedZone("a", 20.0)
	valved.Fallback = true

	out := ApplySafetyOverrides(
		[]ZoneReading{display, valved}, []Decision{DecisionSkip, DecisionClose}, ModeHeat, 1, time.Now(),
	)
	assert.Equal(t, DecisionSkip, out[0])
	assert.Equal(t, DecisionOpen, out[1])
}
