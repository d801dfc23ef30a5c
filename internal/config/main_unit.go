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

const (
	defaultMainMinTemp = 18.0
	defaultMainMaxTemp = 30.0
)

// MainUnitConfig describes the central heat source (boiler/heat-pump
// thermostat) the controller drives over MQTT.
type MainUnitConfig struct {
	TSetTopic      string   `yaml:"tset_topic"`
	ModeTopic      string   `yaml:"mode_topic,omitempty"`
	ModeStateTopic string   `yaml:"mode_state_topic,omitempty"`
	MinTemp        *float64 `yaml:"min_temp"`
	MaxTemp        *float64 `yaml:"max_temp"`
	FallbackTSet   *float64 `yaml:"fallback_tset"`
}

func NewMainUnitConfig() *MainUnitConfig {
	cfg := &MainUnitConfig{}
	cfg.FillDefaults()
	return cfg
}

func (c *MainUnitConfig) FillDefaults() {
	if c.MinTemp == nil {
		c.MinTemp = GetPTR(defaultMainMinTemp)
	}
	if c.MaxTemp == nil {
		c.MaxTemp = GetPTR(defaultMainMaxTemp)
	}
	if c.FallbackTSet == nil {
		c.FallbackTSet = GetPTR(*c.MinTemp)
	}
}
