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
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antst/mzvc/internal/config"
	"github.com/antst/mzvc/internal/control"
	"github.com/antst/mzvc/internal/logger"
	"github.com/antst/mzvc/internal/safe_mqtt"
	"github.com/antst/mzvc/internal/store"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ZoneController owns the live state of one zone: its sensors, target
// setpoint, confirmed valve state and the reopen-suppression deadline. All
// mutation funnels through the mutex; the orchestrator takes a consistent
// snapshot via Reading before each cycle.
type ZoneController struct {
	name               string
	mu                 sync.RWMutex
	cfg                *config.ZoneConfig
	mqtt               safe_mqtt.MqttClient
	sensors            []*SensorController
	store              *store.Store
	setpoint           float64
	averageTemperature float64
	averageTimestamp   time.Time
	valveOpen          bool
	suppressedUntil    time.Time
	averageFunc        func([]*SensorController) (float64, time.Time)
	controlChan        chan<- event
	childChan          chan bool
	done               chan struct{}
}

func newZoneController(
	_name string, _cfg *config.ZoneConfig, _mqttCfg *config.MQTTConfig, _s *store.Store,
	_controlChan chan<- event,
) *ZoneController {
	z := &ZoneController{
		name:             _name,
		cfg:              _cfg,
		store:            _s,
		setpoint:         *_cfg.Target,
		averageTimestamp: zeroTS,
		controlChan:      _controlChan,
		childChan:        make(chan bool, childChanBuffer),
		done:             make(chan struct{}),
	}

	z.LinkAverageFun()
	if err := z.readState(); err == nil {
		logger.L().Debugf("Loaded previous setpoint from DB for zone %v: %v", z.name, z.setpoint)
	}
	if until, err := z.store.GetSuppression(context.Background(), z.name); err == nil && until.After(time.Now()) {
		logger.L().Debugf("Loaded reopen suppression for zone %v until %v", z.name, until)
		z.suppressedUntil = until
	}

	z.mqtt = safe_mqtt.InitMQTTClient(_mqttCfg.URL, "mzvc-zone-"+z.name+"-"+uuid.New().String())

	if z.cfg.Setpoint != nil && z.cfg.Setpoint.Topic != "" {
		z.mqtt.SafeSubscribe(z.cfg.Setpoint.Topic, mqttQoS, z.setpointUpdateHandler)
	}
	if z.cfg.HasValve() && z.cfg.Valve.StateTopic != "" {
		z.mqtt.SafeSubscribe(z.cfg.Valve.StateTopic, mqttQoS, z.valveStateUpdateHandler)
	}

	zoneMQTTgroup := _mqttCfg.ControlTopic + "/zone/" + z.name + "/"
	z.mqtt.SafeSubscribe(zoneMQTTgroup+"target", mqttQoS, z.controlUpdateHandler)
	z.mqtt.SafeSubscribe(zoneMQTTgroup+"opening_offset", mqttQoS, z.controlUpdateHandler)
	z.mqtt.SafeSubscribe(zoneMQTTgroup+"closing_offset", mqttQoS, z.controlUpdateHandler)

	z.sensors = make([]*SensorController, len(z.cfg.Sensors))
	for i, sensor := range z.cfg.Sensors {
		sName := "zone-" + z.name + "-"
		if sensor.Name == "" {
			sName += strconv.Itoa(i + 1)
		} else {
			sName += sensor.Name
		}

		z.sensors[i] = NewSensorController(sName, sensor, _mqttCfg, z.store, z.childChan)
	}
	go z.childProcessor()
	z.updateAverage()

	return z
}

func (z *ZoneController) LinkAverageFun() {
	if z.cfg.SensorsAverageType == config.DefaultAverageType {
		z.averageFunc = sensorsMean
	} else {
		logger.L().Errorf("Unknown average function type: %v", z.cfg.SensorsAverageType)
		logger.L().Error("Reverting to the `mean`")
		z.cfg.SensorsAverageType = config.DefaultAverageType
		z.averageFunc = sensorsMean
	}
}

func (z *ZoneController) childProcessor() {
	for {
		select {
		case <-z.done:
			return
		case <-z.childChan:
			z.updateAverage()
		}
	}
}

func (z *ZoneController) updateAverage() {
	v, t := z.averageFunc(z.sensors)
	if t.After(zeroTS) {
		z.mu.Lock()
		z.averageTimestamp = t
		z.averageTemperature = v
		z.mu.Unlock()
		z.controlChan <- event{kind: evTemperature, zone: z}
	}
}

// Reading snapshots the zone for one control cycle.
func (z *ZoneController) Reading() control.ZoneReading {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return control.ZoneReading{
		Name:            z.name,
		Current:         z.averageTemperature,
		HasCurrent:      z.averageTimestamp.After(zeroTS),
		Target:          z.setpoint,
		OpeningOffset:   *z.cfg.OpeningOffset,
		ClosingOffset:   *z.cfg.ClosingOffset,
		HasValve:        z.cfg.HasValve(),
		Fallback:        z.cfg.Fallback,
		ValveOpen:       z.valveOpen,
		SuppressedUntil: z.suppressedUntil,
	}
}

func (z *ZoneController) setpointUpdateHandler(client mqtt.Client, message mqtt.Message) {
	t0, err := extractF64PlainOrJson(message, z.cfg.Setpoint.JSONEntry)
	if err != nil {
		logger.L().Error(err)
		return
	}

	newSP := t0*(*z.cfg.Setpoint.Scale) + (*z.cfg.Setpoint.Offset)

	z.mu.Lock()
	oldSP := z.setpoint
	z.setpoint = newSP
	z.mu.Unlock()
	logger.L().Debugf("Got setpoint for zone %s : %f", z.name, newSP)

	if err := z.writeState(); err != nil {
		logger.L().Error(err)
	}
	if newSP != oldSP {
		z.controlChan <- event{kind: evTarget, zone: z}
	}
}

func (z *ZoneController) valveStateUpdateHandler(client mqtt.Client, message mqtt.Message) {
	payload := strings.TrimSpace(string(message.Payload()))

	var open bool
	switch payload {
	case z.cfg.Valve.OpenPayload:
		open = true
	case z.cfg.Valve.ClosePayload:
		open = false
	default:
		logger.L().Warnf("Zone %v: unknown valve state payload `%v`", z.name, payload)
		return
	}

	z.mu.Lock()
	changed := z.valveOpen != open
	z.valveOpen = open
	z.mu.Unlock()

	if changed {
		logger.L().Debugf("Zone %v: valve reported %v", z.name, payload)
		z.controlChan <- event{kind: evValveState, zone: z}
	}
}

// SetTarget replaces the zone setpoint from a host command.
func (z *ZoneController) SetTarget(target float64) {
	z.mu.Lock()
	changed := z.setpoint != target
	z.setpoint = target
	z.mu.Unlock()
	if err := z.writeState(); err != nil {
		logger.L().Error(err)
	}
	if changed {
		z.controlChan <- event{kind: evTarget, zone: z}
	}
}

// setSuppressedUntil stores the anticipation cooldown, persisting it so a
// restart cannot shortcut the no-reopen window.
func (z *ZoneController) setSuppressedUntil(until time.Time) {
	z.mu.Lock()
	z.suppressedUntil = until
	z.mu.Unlock()

	var err error
	if until.IsZero() {
		err = z.store.DeleteSuppression(context.Background(), z.name)
	} else {
		err = z.store.UpsertSuppression(context.Background(), z.name, until)
	}
	if err != nil {
		logger.L().Error(err)
	}
}

func (z *ZoneController) writeState() error {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.store.UpsertZoneSetpoint(context.Background(), z.name, z.setpoint)
}

func (z *ZoneController) readState() error {
	val, err := z.store.GetZoneSetpoint(context.Background(), z.name)
	if err != nil {
		return err
	}
	z.setpoint = val
	return nil
}

func (z *ZoneController) controlUpdateHandler(client mqtt.Client, message mqtt.Message) {
	topic := message.Topic()[strings.LastIndex(message.Topic(), "/")+1:]
	logger.L().Infof("Zone %v got MQTT control request: %v : %v", z.name, topic, string(message.Payload()))

	value, err := strconv.ParseFloat(string(message.Payload()), 64)
	if err != nil {
		logger.L().Error(err)
		return
	}

	switch topic {
	case "target":
		z.SetTarget(value)
		return
	case "opening_offset", "closing_offset":
		if value < 0 {
			logger.L().Errorf("Zone %v: %s must be >= 0, got %v", z.name, topic, value)
			return
		}
		z.mu.Lock()
		if topic == "opening_offset" {
			z.cfg.OpeningOffset = &value
		} else {
			z.cfg.ClosingOffset = &value
		}
		z.mu.Unlock()
	default:
		logger.L().Errorf("Unknown control topic: %s", topic)
		return
	}

	logger.L().Infof("Updated %s for zone `%v` to %v", topic, z.name, value)
	z.controlChan <- event{kind: evTarget, zone: z}
}

// UpdateConfig adopts the tunable parts of a reloaded zone block. Topology
// (sensor set, valve topics) stays fixed for the zone's lifetime; a
// topology change arrives as remove+add from the orchestrator.
func (z *ZoneController) UpdateConfig(cfg *config.ZoneConfig) {
	z.mu.Lock()
	z.cfg.OpeningOffset = cfg.OpeningOffset
	z.cfg.ClosingOffset = cfg.ClosingOffset
	z.cfg.Fallback = cfg.Fallback
	z.cfg.NoCooling = cfg.NoCooling
	z.mu.Unlock()
	logger.L().Infof("Zone %v: configuration updated", z.name)
}

// Close tears the zone down. childChan is never closed: a sensor handler
// caught mid-send past the disconnect quiesce must not panic, so the
// processor is stopped via done and the channel left to the collector.
func (z *ZoneController) Close() {
	for _, s := range z.sensors {
		s.Close()
	}
	close(z.done)
	z.mqtt.Disconnect()
}
