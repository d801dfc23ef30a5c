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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
mqtt:
  url: tcp://broker:1883
control:
  mode: heat
  min_valves_open: 2
  transition_delay: 90s
  reconcile_interval: 10
zones:
  living:
    target: 21.5
    opening_offset: 0.4
    fallback: true
    sensors:
      - topic: home/living/temp
    valve:
      command_topic: home/living/valve/set
      state_topic: home/living/valve
  bedroom:
    sensors:
      - topic: home/bedroom/temp
        json_entry: temperature
    valve:
      command_topic: home/bedroom/valve/set
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTTConfig.URL)
	assert.Equal(t, "mzvc/control", cfg.MQTTConfig.ControlTopic, "default topic")

	require.Len(t, cfg.Zones, 2)
	living := cfg.Zones["living"]
	assert.Equal(t, 21.5, *living.Target)
	assert.Equal(t, 0.4, *living.OpeningOffset)
	assert.Equal(t, 0.0, *living.ClosingOffset, "default closing offset")
	assert.True(t, living.Fallback)
	assert.True(t, living.HasValve())
	assert.Equal(t, "ON", living.Valve.OpenPayload, "default payload")

	bedroom := cfg.Zones["bedroom"]
	assert.Equal(t, 20.0, *bedroom.Target, "default target")
	require.Len(t, bedroom.Sensors, 1)
	require.NotNil(t, bedroom.Sensors[0].JSONEntry)
	assert.Equal(t, "temperature", *bedroom.Sensors[0].JSONEntry)

	assert.Equal(t, 2, *cfg.Control.MinValvesOpen)
	assert.Equal(t, 90*time.Second, cfg.Control.TransitionDelay.D())
	assert.Equal(t, 10*time.Second, cfg.Control.ReconcileInterval.D(), "bare number is seconds")
	assert.Equal(t, 0.66, *cfg.Control.CompensationFactor, "default factor")
}

func TestZoneNamesAreSorted(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"bedroom", "living"}, cfg.ZoneNames())
}

func TestLoadRejectsMissingFallback(t *testing.T) {
	_, err := Load(writeConfig(t, `
zones:
  living:
    sensors:
      - topic: home/living/temp
    valve:
      command_topic: home/living/valve/set
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback")
}

func TestLoadRejectsBadCompensationFactor(t *testing.T) {
	_, err := Load(writeConfig(t, `
control:
  compensation_factor: 1.5
zones:
  living:
    fallback: true
    sensors:
      - topic: home/living/temp
    valve:
      command_topic: home/living/valve/set
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compensation_factor")
}

func TestLoadRejectsZoneWithoutSensors(t *testing.T) {
	_, err := Load(writeConfig(t, `
zones:
  living:
    fallback: true
    valve:
      command_topic: home/living/valve/set
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sensor")
}

func TestLoadRejectsValvelessFallback(t *testing.T) {
	_, err := Load(writeConfig(t, `
zones:
  living:
    fallback: true
    sensors:
      - topic: home/living/temp
  other:
    fallback: true
    sensors:
      - topic: home/other/temp
    valve:
      command_topic: home/other/valve/set
`))
	require.Error(t, err)
}

func TestLoadRejectsInvertedMainRange(t *testing.T) {
	_, err := Load(writeConfig(t, `
main:
  min_temp: 30
  max_temp: 20
zones:
  living:
    fallback: true
    sensors:
      - topic: home/living/temp
    valve:
      command_topic: home/living/valve/set
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_temp")
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	_, err := Load(writeConfig(t, `
control:
  mode: auto
zones: {}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestValveOnlyConfigWithoutFallbackZones(t *testing.T) {
	// A display-only deployment: no valves at all, fallback not required.
	cfg, err := Load(writeConfig(t, `
zones:
  living:
    sensors:
      - topic: home/living/temp
`))
	require.NoError(t, err)
	assert.False(t, cfg.Zones["living"].HasValve())
}
