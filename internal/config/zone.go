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

import "github.com/pkg/errors"

const (
	zoneDefaultTarget        = 20.0
	zoneDefaultOpeningOffset = 0.5
	zoneDefaultClosingOffset = 0.0
)

type ZoneConfig struct {
	Target             *float64        `yaml:"target"`
	OpeningOffset      *float64        `yaml:"opening_offset"`
	ClosingOffset      *float64        `yaml:"closing_offset"`
	Fallback           bool            `yaml:"fallback"`
	NoCooling          bool            `yaml:"no_cooling,omitempty"`
	SensorsAverageType string          `yaml:"sensors_average_type"`
	Setpoint           *SetpointConfig `yaml:"setpoint,omitempty"`
	Sensors            []*SensorConfig `yaml:"sensors"`
	Valve              *ValveConfig    `yaml:"valve,omitempty"`
}

// ValveConfig describes the actuator of a zone. A zone without a valve is
// monitored but never actuated.
type ValveConfig struct {
	CommandTopic string `yaml:"command_topic"`
	StateTopic   string `yaml:"state_topic,omitempty"`
	OpenPayload  string `yaml:"open_payload"`
	ClosePayload string `yaml:"close_payload"`
}

func (v *ValveConfig) FillDefaults() {
	if v.OpenPayload == "" {
		v.OpenPayload = "ON"
	}
	if v.ClosePayload == "" {
		v.ClosePayload = "OFF"
	}
}

func (z *ZoneConfig) HasValve() bool {
	return z.Valve != nil && z.Valve.CommandTopic != ""
}

func (z *ZoneConfig) FillDefaults() {
	if z.Target == nil {
		z.Target = GetPTR(zoneDefaultTarget)
	}
	if z.OpeningOffset == nil {
		z.OpeningOffset = GetPTR(zoneDefaultOpeningOffset)
	}
	if z.ClosingOffset == nil {
		z.ClosingOffset = GetPTR(zoneDefaultClosingOffset)
	}
	if z.SensorsAverageType == "" {
		z.SensorsAverageType = DefaultAverageType
	}
	if z.Setpoint != nil {
		z.Setpoint.FillDefaults()
	}
	if z.Valve != nil {
		z.Valve.FillDefaults()
	}
	for _, s := range z.Sensors {
		s.FillDefaults()
	}
}

func (z *ZoneConfig) Validate() error {
	if *z.OpeningOffset < 0 {
		return errors.Errorf("opening_offset must be >= 0, got %v", *z.OpeningOffset)
	}
	if *z.ClosingOffset < 0 {
		return errors.Errorf("closing_offset must be >= 0, got %v", *z.ClosingOffset)
	}
	if len(z.Sensors) == 0 {
		return errors.New("at least one temperature sensor is required")
	}
	if z.Fallback && !z.HasValve() {
		return errors.New("a fallback zone must have a valve")
	}
	return nil
}

func NewZoneConfig() *ZoneConfig {
	return &ZoneConfig{
		Sensors: make([]*SensorConfig, 0),
	}
}
