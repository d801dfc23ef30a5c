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

package internal

import (
	"testing"

	"github.com/antst/mzvc/internal/control"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compParams() control.CompensationParams {
	return control.CompensationParams{
		Factor:             0.66,
		AllSatisfiedWeight: 50,
		MinTarget:          18.0,
		MaxTarget:          30.0,
	}
}

func TestMainWriteRetainedWithoutValvedReadings(t *testing.T) {
	// No zone has a valve: compensation is skipped and the previously
	// applied target stays in force, cycle after cycle.
	display := control.ZoneReading{
		Name: "display", Target: 21.0, Current: 15.0, HasCurrent: true, HasValve: false,
	}
	last := 22.5

	for cycle := 0; cycle < 3; cycle++ {
		_, write := planMainWrite([]control.ZoneReading{display}, control.ModeHeat, compParams(), 0.3, &last)
		assert.False(t, write, "cycle %d must not write", cycle)
	}
	assert.Equal(t, 22.5, last)
}

func TestMainWriteRetainedWhileSensorsUnavailable(t *testing.T) {
	silent := control.ZoneReading{Name: "a", Target: 21.0, HasValve: true, HasCurrent: false}

	_, write := planMainWrite([]control.ZoneReading{silent}, control.ModeHeat, compParams(), 0.3, nil)
	assert.False(t, write)
}

func TestMainWriteGatedByThreshold(t *testing.T) {
	cold := control.ZoneReading{
		Name: "a", Target: 21.0, Current: 19.0, HasCurrent: true, HasValve: true,
		OpeningOffset: 0.5, ClosingOffset: 0.5,
	}

	target, write := planMainWrite([]control.ZoneReading{cold}, control.ModeHeat, compParams(), 0.3, nil)
	require.True(t, write, "first computed target always goes out")
	assert.InDelta(t, 22.3, target.Value, 1e-9)

	applied := target.Value
	_, write = planMainWrite([]control.ZoneReading{cold}, control.ModeHeat, compParams(), 0.3, &applied)
	assert.False(t, write, "same value again sits inside the threshold")
}

func TestNotifyForceNeverBlocks(t *testing.T) {
	ch := make(chan event, 1)

	notifyForce(ch)
	notifyForce(ch) // full queue: dropped, not blocked

	require.Len(t, ch, 1)
	e := <-ch
	assert.Equal(t, evForce, e.kind)
}
