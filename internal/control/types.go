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

// Package control holds the pure decision logic of the controller: per-zone
// hysteresis, temperature aggregation, main-unit compensation, the fallback
// safety guard and valve transition planning. Nothing here performs I/O;
// every function works on a snapshot taken by the orchestrator.
package control

import (
	"time"

	"github.com/pkg/errors"
)

type Mode string

const (
	ModeHeat Mode = "heat"
	ModeCool Mode = "cool"
	ModeOff  Mode = "off"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHeat, ModeCool, ModeOff:
		return Mode(s), nil
	}
	return "", errors.Errorf("unknown mode `%v`", s)
}

// Decision is the outcome of one zone's hysteresis evaluation.
type Decision int

const (
	// DecisionSkip: no reading available, the valve keeps its previous state.
	DecisionSkip Decision = iota
	DecisionOpen
	DecisionClose
)

func (d Decision) String() string {
	switch d {
	case DecisionOpen:
		return "open"
	case DecisionClose:
		return "close"
	default:
		return "skip"
	}
}

// ZoneReading is the consistent per-zone snapshot a cycle operates on.
// ValveOpen reflects the actuator-confirmed state, not the last command.
type ZoneReading struct {
	Name            string
	Current         float64
	HasCurrent      bool
	Target          float64
	OpeningOffset   float64
	ClosingOffset   float64
	HasValve        bool
	Fallback        bool
	ValveOpen       bool
	SuppressedUntil time.Time
}

// Bounds returns the satisfied band of a zone: below the lower bound the
// zone is underheated, above the upper bound it is overheated.
func (z ZoneReading) Bounds() (lower, upper float64) {
	return z.Target - z.OpeningOffset, z.Target + z.ClosingOffset
}

// NeedsAction reports whether the zone is outside its satisfied band on
// either side. Note that with a zero closing offset a zone registers as
// overheated at any excess over the target, however small; this matches the
// deployed behavior and must not be widened.
func (z ZoneReading) NeedsAction() bool {
	if !z.HasCurrent {
		return false
	}
	lower, upper := z.Bounds()
	return z.Current < lower || z.Current > upper
}
