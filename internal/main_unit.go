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
	"fmt"
	"strings"
	"sync"

	"github.com/antst/mzvc/internal/config"
	"github.com/antst/mzvc/internal/control"
	"github.com/antst/mzvc/internal/logger"
	"github.com/antst/mzvc/internal/safe_mqtt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MainUnitController is the write side towards the heat source: the flow
// setpoint topic and, optionally, an operating mode topic. Setpoints are
// published retained so the unit picks up the last value after its own
// restart.
type MainUnitController struct {
	mu          sync.RWMutex
	cfg         *config.MainUnitConfig
	mqtt        safe_mqtt.MqttClient
	lastTSet    float64
	hasLastTSet bool
	controlChan chan<- event
}

func newMainUnitController(
	_cfg *config.MainUnitConfig, _mqttCfg *config.MQTTConfig, _controlChan chan<- event,
) *MainUnitController {
	m := &MainUnitController{
		cfg:         _cfg,
		controlChan: _controlChan,
	}

	m.mqtt = safe_mqtt.InitMQTTClient(_mqttCfg.URL, "mzvc-main-"+uuid.New().String())

	if m.cfg.ModeStateTopic != "" {
		m.mqtt.SafeSubscribe(m.cfg.ModeStateTopic, mqttQoS, m.modeStateUpdateHandler)
	}

	return m
}

// SetTarget publishes the compensated flow setpoint, clamped to the unit's
// accepted range one more time at the edge.
func (m *MainUnitController) SetTarget(tSet float64) {
	if tSet < *m.cfg.MinTemp {
		tSet = *m.cfg.MinTemp
	}
	if tSet > *m.cfg.MaxTemp {
		tSet = *m.cfg.MaxTemp
	}

	m.mu.Lock()
	m.lastTSet = tSet
	m.hasLastTSet = true
	m.mu.Unlock()

	logger.L().Infof("Main unit: setting target to %.1f", tSet)
	m.mqtt.SafePublish(m.cfg.TSetTopic, mqttQoS, true, fmt.Sprintf("%.1f", tSet))
}

// LastTarget reports the last setpoint written this run.
func (m *MainUnitController) LastTarget() (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTSet, m.hasLastTSet
}

func (m *MainUnitController) SetMode(mode control.Mode) {
	if m.cfg.ModeTopic == "" {
		logger.L().Debug("Main unit: no mode topic configured, mode change not forwarded")
		return
	}
	logger.L().Infof("Main unit: setting mode to %v", mode)
	m.mqtt.SafePublish(m.cfg.ModeTopic, mqttQoS, true, string(mode))
}

func (m *MainUnitController) modeStateUpdateHandler(client mqtt.Client, message mqtt.Message) {
	payload := strings.TrimSpace(string(message.Payload()))
	mode, err := control.ParseMode(payload)
	if err != nil {
		logger.L().Warnf("Main unit reported unknown mode `%v`", payload)
		return
	}
	logger.L().Infof("Main unit reported mode: %v", mode)
	m.controlChan <- event{kind: evMode, mode: mode}
}

func (m *MainUnitController) Close() {
	m.mqtt.Disconnect()
}
