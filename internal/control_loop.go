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
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/antst/mzvc/internal/config"
	"github.com/antst/mzvc/internal/control"
	"github.com/antst/mzvc/internal/logger"
	"github.com/antst/mzvc/internal/safe_mqtt"
	"github.com/antst/mzvc/internal/store"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

const (
	kvMode    = "mode"
	kvEnabled = "enabled"
)

// Controller is the orchestrator: it owns the event loop, takes zone
// snapshots, runs the decision pipeline and dispatches the results. All
// control state transitions happen on the loop goroutine; MQTT handlers and
// child controllers only feed events in.
type Controller struct {
	mu        sync.RWMutex
	cfg       *config.Config
	mqtt      safe_mqtt.MqttClient
	store     *store.Store
	zones     map[string]*ZoneController
	zoneOrder []string
	mainUnit  *MainUnitController
	scheduler *transitionScheduler
	watcher   *config.Watcher
	eventChan chan event

	mode    control.Mode
	enabled bool

	// lastApplied is the last main-unit target written this run and
	// lastHolding whether the last cycle ran in holding mode; only the
	// loop goroutine touches them.
	lastApplied *float64
	lastHolding bool
}

func NewController() *Controller {
	return NewControllerWithConfig(config.Get())
}

// NewControllerWithConfig wires a controller from an already validated
// configuration. Used by NewController and by tests.
func NewControllerWithConfig(cfg *config.Config) *Controller {
	c := &Controller{
		cfg:       cfg,
		store:     store.Open(cfg.DBFile),
		zones:     make(map[string]*ZoneController),
		eventChan: make(chan event, eventChanBuffer),
		mode:      control.Mode(cfg.Control.Mode),
		enabled:   true,
	}

	c.restoreState()

	c.mqtt = safe_mqtt.InitMQTTClient(cfg.MQTTConfig.URL, "mzvc-ctrl-"+uuid.New().String())
	for _, t := range []string{"target", "mode", "enable", "log_level"} {
		c.mqtt.SafeSubscribe(cfg.MQTTConfig.ControlTopic+"/"+t, mqttQoS, c.controlUpdateHandler)
	}

	c.zoneOrder = cfg.ZoneNames()
	for _, name := range c.zoneOrder {
		c.zones[name] = newZoneController(name, cfg.Zones[name], cfg.MQTTConfig, c.store, c.eventChan)
	}

	c.mainUnit = newMainUnitController(cfg.Main, cfg.MQTTConfig, c.eventChan)
	c.scheduler = newTransitionScheduler(cfg.Control.TransitionDelay.D())

	if c.mode == control.ModeCool {
		c.warnNoCooling()
	}

	if cfg.Path() != "" {
		w, err := config.Watch(cfg.Path(), func(newCfg *config.Config) {
			c.eventChan <- event{kind: evConfig, cfg: newCfg}
		})
		if err != nil {
			logger.L().Errorf("Config watching disabled: %v", err)
		} else {
			c.watcher = w
		}
	}

	return c
}

func (c *Controller) restoreState() {
	if v, err := c.store.GetControllerValue(context.Background(), kvMode); err == nil {
		if mode, err := control.ParseMode(v); err == nil {
			logger.L().Infof("Restored mode from DB: %v", mode)
			c.mode = mode
		}
	}
	if v, err := c.store.GetControllerValue(context.Background(), kvEnabled); err == nil {
		enabled, err := strconv.ParseBool(v)
		if err == nil && !enabled {
			logger.L().Warn("Controller restored in disabled state")
			c.enabled = false
		}
	}
}

// Run is the event loop. Every inbound event arms a short debounce timer so
// a burst of sensor updates collapses into one cycle; the reconcile ticker
// re-runs the cycle periodically to retry unconfirmed valve commands and to
// age out reopen suppressions.
func (c *Controller) Run(ctx context.Context) error {
	timer := time.NewTimer(timerDuration)
	if !timer.Stop() {
		<-timer.C
	}
	reconcile := time.NewTicker(c.reconcileInterval())
	defer reconcile.Stop()

	logger.L().Infof("Controller running: %d zones, mode %v", len(c.zoneOrder), c.Mode())
	c.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case e := <-c.eventChan:
			switch e.kind {
			case evConfig:
				c.applyConfig(e.cfg)
				reconcile.Reset(c.reconcileInterval())
			case evMode:
				c.SetMode(e.mode)
				// Reset inline: SetMode's own force signal may be dropped
				// when the queue is saturated.
				c.lastApplied = nil
			case evForce:
				// Mode or enable flips invalidate the threshold gate.
				c.lastApplied = nil
			}
			timer.Reset(timerDuration)

		case <-timer.C:
			c.runCycle(ctx)

		case <-reconcile.C:
			c.runCycle(ctx)
		}
	}
}

func (c *Controller) reconcileInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Control.ReconcileInterval.D()
}

func (c *Controller) Mode() control.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// runCycle executes one decision pipeline pass: snapshot, hysteresis,
// safety overrides, transition planning and main-unit compensation.
func (c *Controller) runCycle(ctx context.Context) {
	if !c.Enabled() {
		logger.L().Debug("Controller disabled, skipping cycle")
		return
	}

	now := time.Now()
	mode := c.Mode()

	c.mu.RLock()
	ctl := c.cfg.Control
	main := c.cfg.Main
	order := c.zoneOrder
	hp := control.HysteresisParams{
		CloseAnticipation: *ctl.CloseAnticipation,
		ReopenSuppression: ctl.TransitionDelay.D(),
	}
	minOpen := *ctl.MinValvesOpen
	c.mu.RUnlock()

	readings := make([]control.ZoneReading, 0, len(order))
	zones := make([]*ZoneController, 0, len(order))
	for _, name := range order {
		z, ok := c.zones[name]
		if !ok {
			continue
		}
		readings = append(readings, z.Reading())
		zones = append(zones, z)
	}

	decisions := make([]control.Decision, len(readings))
	for i, r := range readings {
		if !r.HasValve {
			continue
		}
		if mode == control.ModeOff {
			decisions[i] = control.DecisionClose
			continue
		}
		d, supp := control.EvaluateZone(r, hp, now)
		decisions[i] = d
		if !supp.Equal(r.SuppressedUntil) {
			zones[i].setSuppressedUntil(supp)
		}
	}

	decisions = control.ApplySafetyOverrides(readings, decisions, mode, minOpen, now)

	plan := control.PlanTransitions(readings, decisions, minOpen)
	if !plan.Empty() {
		logger.L().Infof("Transition plan: open %v, close %v (deferred: %v)", plan.ToOpen, plan.ToClose, plan.DeferClose)
	}
	c.scheduler.Apply(ctx, plan, c.valveMap())

	if mode == control.ModeOff {
		// Hold the unit at its safe setpoint while off; write once, not
		// every reconcile tick.
		if c.lastApplied == nil || *c.lastApplied != *main.FallbackTSet {
			c.mainUnit.SetTarget(*main.FallbackTSet)
			v := *main.FallbackTSet
			c.lastApplied = &v
		}
	} else {
		c.driveMainUnit(readings, mode, ctl, main)
	}

	c.publishState(readings, decisions, mode, ctl)
}

// driveMainUnit runs the compensation stage and gates the external write
// behind the change threshold.
func (c *Controller) driveMainUnit(
	readings []control.ZoneReading, mode control.Mode, ctl *config.ControlConfig, main *config.MainUnitConfig,
) {
	for _, r := range readings {
		if !r.HasValve && r.HasCurrent {
			logger.L().Debugf("Zone %v has no valve, excluded from compensation", r.Name)
		}
	}

	target, write := planMainWrite(readings, mode, control.CompensationParams{
		Factor:             *ctl.CompensationFactor,
		AllSatisfiedWeight: *ctl.AllSatisfiedWeight,
		MinTarget:          *main.MinTemp,
		MaxTarget:          *main.MaxTemp,
	}, *ctl.ChangeThreshold, c.lastApplied)

	c.lastHolding = target.Holding
	if !write {
		logger.L().Debug("No main-unit write this cycle, previous target retained")
		return
	}

	c.mainUnit.SetTarget(target.Value)
	v := target.Value
	c.lastApplied = &v
}

// planMainWrite is the pure write gate of a cycle: compensation outcome
// plus the change-threshold check. The bool is false when nothing must be
// written, either because no target is derivable (no valved zone with a
// reading, or no deficit in the active direction) or because the new value
// sits within the threshold of the last applied one; the previously applied
// target then stays in force.
func planMainWrite(
	readings []control.ZoneReading, mode control.Mode, p control.CompensationParams,
	threshold float64, lastApplied *float64,
) (control.MainTarget, bool) {
	target := control.ComputeMainTarget(readings, mode, p)
	if !target.Valid {
		return target, false
	}
	return target, control.ShouldApply(target.Value, lastApplied, threshold)
}

type zoneReport struct {
	Current         *float64 `json:"current,omitempty"`
	Target          float64  `json:"target"`
	LowerBound      float64  `json:"lower_bound"`
	UpperBound      float64  `json:"upper_bound"`
	ValveOpen       *bool    `json:"valve_open,omitempty"`
	Decision        string   `json:"decision,omitempty"`
	Satisfied       bool     `json:"satisfied"`
	SuppressedUntil *int64   `json:"suppressed_until,omitempty"`
}

// publishState emits the retained per-zone JSON reports, the aggregated
// display temperature and the controller summary.
func (c *Controller) publishState(
	readings []control.ZoneReading, decisions []control.Decision, mode control.Mode, ctl *config.ControlConfig,
) {
	c.mu.RLock()
	stateTopic := c.cfg.MQTTConfig.StateTopic
	enabled := c.enabled
	c.mu.RUnlock()

	var temps []float64
	for i, r := range readings {
		lower, upper := r.Bounds()
		rep := zoneReport{
			Target:     r.Target,
			LowerBound: lower,
			UpperBound: upper,
			Satisfied:  !r.NeedsAction(),
		}
		if r.HasCurrent {
			v := r.Current
			rep.Current = &v
			temps = append(temps, v)
		}
		if r.HasValve {
			open := r.ValveOpen
			rep.ValveOpen = &open
			rep.Decision = decisions[i].String()
		}
		if !r.SuppressedUntil.IsZero() {
			ts := r.SuppressedUntil.Unix()
			rep.SuppressedUntil = &ts
		}

		data, err := json.Marshal(rep)
		if err != nil {
			logger.L().Error(err)
			continue
		}
		c.mqtt.SafePublish(stateTopic+"/zone/"+r.Name, mqttQoS, true, data)
	}

	method, err := control.ParseMethod(ctl.DisplayAggregation)
	if err != nil {
		method = control.AggregateAverage
	}
	if display, ok := control.Aggregate(temps, method, *ctl.DisplayWeight); ok {
		c.mqtt.SafePublish(stateTopic+"/temperature", mqttQoS, true, fmt.Sprintf("%.2f", display))
	}

	summary := map[string]interface{}{"mode": mode, "enabled": enabled, "holding": c.lastHolding}
	if tset, ok := c.mainUnit.LastTarget(); ok {
		summary["main_target"] = tset
	}
	if data, err := json.Marshal(summary); err == nil {
		c.mqtt.SafePublish(stateTopic+"/controller", mqttQoS, true, data)
	}
}

func (c *Controller) valveMap() map[string]valveDispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	valves := make(map[string]valveDispatcher, len(c.zones))
	for name, z := range c.zones {
		if z.cfg.HasValve() {
			valves[name] = z
		}
	}
	return valves
}

// SetTarget overrides the target of every zone at once.
func (c *Controller) SetTarget(target float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, z := range c.zones {
		z.SetTarget(target)
	}
}

// SetMode switches the operating mode, persists it and forwards it to the
// main unit.
func (c *Controller) SetMode(mode control.Mode) {
	c.mu.Lock()
	changed := c.mode != mode
	c.mode = mode
	c.mu.Unlock()
	if !changed {
		return
	}

	logger.L().Infof("Operating mode set to %v", mode)
	if err := c.store.UpsertControllerValue(context.Background(), kvMode, string(mode)); err != nil {
		logger.L().Error(err)
	}
	if mode == control.ModeCool {
		c.warnNoCooling()
	}
	c.mainUnit.SetMode(mode)
	notifyForce(c.eventChan)
}

// SetEnabled pauses or resumes the control loop. While disabled no valve
// commands and no main-unit writes are issued; valves stay as they are.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	changed := c.enabled != enabled
	c.enabled = enabled
	c.mu.Unlock()
	if !changed {
		return
	}

	logger.L().Infof("Controller enabled: %v", enabled)
	if err := c.store.UpsertControllerValue(context.Background(), kvEnabled, strconv.FormatBool(enabled)); err != nil {
		logger.L().Error(err)
	}
	if !enabled {
		c.scheduler.CancelPending()
		// Valves keep their state; the central unit drops to its safe
		// setpoint since nobody will steer it while paused.
		c.mu.RLock()
		safe := *c.cfg.Main.FallbackTSet
		c.mu.RUnlock()
		c.mainUnit.SetTarget(safe)
	} else {
		notifyForce(c.eventChan)
	}
}

// warnNoCooling flags zones whose floor loops must not carry cold water
// when cooling mode engages. A no_cooling fallback zone is the dangerous
// combination: the guard forces it open and it does receive cold water.
func (c *Controller) warnNoCooling() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range c.zoneOrder {
		z := c.cfg.Zones[name]
		if !z.NoCooling {
			continue
		}
		if z.Fallback {
			logger.L().Warnf("Zone %v is marked no_cooling but is a fallback zone: it will receive cold water in cooling mode", name)
		} else {
			logger.L().Warnf("Zone %v does not support cooling, its valve stays closed in cooling mode", name)
		}
	}
}

func (c *Controller) controlUpdateHandler(client mqtt.Client, message mqtt.Message) {
	topic := lastTopicPart(message.Topic())
	payload := string(message.Payload())
	logger.L().Infof("Controller got MQTT control request: %v : %v", topic, payload)

	switch topic {
	case "target":
		value, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			logger.L().Error(err)
			return
		}
		c.SetTarget(value)
	case "mode":
		mode, err := control.ParseMode(payload)
		if err != nil {
			logger.L().Error(err)
			return
		}
		c.SetMode(mode)
	case "enable":
		enabled, err := strconv.ParseBool(payload)
		if err != nil {
			logger.L().Error(err)
			return
		}
		c.SetEnabled(enabled)
	case "log_level":
		var level zapcore.Level
		if err := level.Set(payload); err != nil {
			logger.L().Errorf("Wrong log level `%v`: %v", payload, err)
			return
		}
		logger.L().Infof("Log level: %v -> %v", logger.Level(), level)
		logger.SetLogLevel(level)
	default:
		logger.L().Errorf("Unknown control topic: %s", topic)
	}
}

// applyConfig adopts a reloaded configuration: tunables in place, zones
// diffed by name (removed zones are shut down, new ones spun up).
func (c *Controller) applyConfig(cfg *config.Config) {
	c.mu.Lock()

	oldZones := c.zones
	newOrder := cfg.ZoneNames()
	newZones := make(map[string]*ZoneController, len(newOrder))

	var toClose []*ZoneController
	for name, z := range oldZones {
		if _, keep := cfg.Zones[name]; keep {
			z.UpdateConfig(cfg.Zones[name])
			newZones[name] = z
		} else {
			logger.L().Infof("Zone %v removed by config reload", name)
			toClose = append(toClose, z)
		}
	}
	for _, name := range newOrder {
		if _, exists := newZones[name]; !exists {
			logger.L().Infof("Zone %v added by config reload", name)
			newZones[name] = newZoneController(name, cfg.Zones[name], cfg.MQTTConfig, c.store, c.eventChan)
		}
	}

	c.zones = newZones
	c.zoneOrder = newOrder
	c.cfg.Control = cfg.Control
	c.cfg.Main = cfg.Main
	c.cfg.Zones = cfg.Zones
	c.mu.Unlock()
	c.scheduler.setDelay(cfg.Control.TransitionDelay.D())

	for _, z := range toClose {
		z.Close()
	}
	logger.L().Info("Configuration applied")
}

func (c *Controller) shutdown() {
	logger.L().Info("Controller shutting down")
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.scheduler.Shutdown()
	for _, z := range c.zones {
		z.Close()
	}
	c.mainUnit.Close()
	c.mqtt.Disconnect()
	if err := c.store.Close(); err != nil {
		logger.L().Error(err)
	}
}
