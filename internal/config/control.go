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

package config

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultMinValvesOpen      = 1
	defaultCompensationFactor = 0.66
	defaultChangeThreshold    = 0.3
	defaultAllSatisfiedWeight = 50
	defaultTransitionDelay    = 120 * time.Second
	defaultReconcileInterval  = 5 * time.Second
	defaultCloseAnticipation  = 0.0
	defaultDisplayWeight      = 50
	defaultMode               = "heat"
	defaultDisplayAggregation = "average"
)

// ControlConfig is the global control-loop tuning block.
type ControlConfig struct {
	Mode               string   `yaml:"mode"`
	MinValvesOpen      *int     `yaml:"min_valves_open"`
	CompensationFactor *float64 `yaml:"compensation_factor"`
	ChangeThreshold    *float64 `yaml:"change_threshold"`
	CloseAnticipation  *float64 `yaml:"close_anticipation"`
	AllSatisfiedWeight *int     `yaml:"all_satisfied_weight"`
	DisplayAggregation string   `yaml:"display_aggregation"`
	DisplayWeight      *int     `yaml:"display_weight"`
	TransitionDelay    Duration `yaml:"transition_delay"`
	ReconcileInterval  Duration `yaml:"reconcile_interval"`
}

func NewControlConfig() *ControlConfig {
	cfg := &ControlConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *ControlConfig) FillDefaults() {
	if c.Mode == "" {
		c.Mode = defaultMode
	}
	if c.MinValvesOpen == nil {
		c.MinValvesOpen = GetPTR(defaultMinValvesOpen)
	}
	if c.CompensationFactor == nil {
		c.CompensationFactor = GetPTR(defaultCompensationFactor)
	}
	if c.ChangeThreshold == nil {
		c.ChangeThreshold = GetPTR(defaultChangeThreshold)
	}
	if c.CloseAnticipation == nil {
		c.CloseAnticipation = GetPTR(defaultCloseAnticipation)
	}
	if c.AllSatisfiedWeight == nil {
		c.AllSatisfiedWeight = GetPTR(defaultAllSatisfiedWeight)
	}
	if c.DisplayAggregation == "" {
		c.DisplayAggregation = defaultDisplayAggregation
	}
	if c.DisplayWeight == nil {
		c.DisplayWeight = GetPTR(defaultDisplayWeight)
	}
	if c.TransitionDelay == 0 {
		c.TransitionDelay = Duration(defaultTransitionDelay)
	}
	if c.ReconcileInterval == 0 {
		c.ReconcileInterval = Duration(defaultReconcileInterval)
	}
}

// Validate enforces every configuration invariant the control core relies
// on. A violation here never reaches the control loop.
func (cfg *Config) Validate() error {
	c := cfg.Control
	if *c.MinValvesOpen < 0 {
		return errors.Errorf("min_valves_open must be >= 0, got %d", *c.MinValvesOpen)
	}
	if *c.CompensationFactor < 0 || *c.CompensationFactor > 1 {
		return errors.Errorf("compensation_factor must be within [0,1], got %v", *c.CompensationFactor)
	}
	if *c.ChangeThreshold < 0 {
		return errors.Errorf("change_threshold must be >= 0, got %v", *c.ChangeThreshold)
	}
	if *c.CloseAnticipation < 0 {
		return errors.Errorf("close_anticipation must be >= 0, got %v", *c.CloseAnticipation)
	}
	if *c.AllSatisfiedWeight < 0 || *c.AllSatisfiedWeight > 100 {
		return errors.Errorf("all_satisfied_weight must be within [0,100], got %d", *c.AllSatisfiedWeight)
	}
	if *c.DisplayWeight < 0 || *c.DisplayWeight > 100 {
		return errors.Errorf("display_weight must be within [0,100], got %d", *c.DisplayWeight)
	}
	switch c.Mode {
	case "heat", "cool", "off":
	default:
		return errors.Errorf("unknown mode `%v`", c.Mode)
	}
	if c.TransitionDelay < 0 || c.ReconcileInterval <= 0 {
		return errors.New("transition_delay must be >= 0 and reconcile_interval > 0")
	}

	if *cfg.Main.MinTemp >= *cfg.Main.MaxTemp {
		return errors.Errorf(
			"main min_temp %v must be below max_temp %v", *cfg.Main.MinTemp, *cfg.Main.MaxTemp,
		)
	}

	valved, fallbacks := 0, 0
	for name, z := range cfg.Zones {
		if err := z.Validate(); err != nil {
			return errors.WithMessagef(err, "zone `%v`", name)
		}
		if z.HasValve() {
			valved++
			if z.Fallback {
				fallbacks++
			}
		}
	}
	if valved > 0 && fallbacks == 0 {
		return errors.New("at least one zone with a valve must be marked as fallback")
	}

	return nil
}

// ZoneNames returns the zone names in configuration order. YAML maps carry
// no order, so configuration order is defined as lexical name order.
func (cfg *Config) ZoneNames() []string {
	names := make([]string, 0, len(cfg.Zones))
	for name := range cfg.Zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
