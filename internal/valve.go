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

	"github.com/antst/mzvc/internal/logger"

	"github.com/pkg/errors"
)

// SetValve publishes the open/close command for the zone's actuator and
// waits for broker acknowledgement. Without a state topic configured the
// command is taken as confirmed immediately; otherwise the confirmed state
// only changes when the actuator reports back.
func (z *ZoneController) SetValve(ctx context.Context, open bool) error {
	z.mu.RLock()
	cfg := z.cfg.Valve
	z.mu.RUnlock()

	if cfg == nil {
		return errors.Errorf("zone %v has no valve", z.name)
	}

	payload := cfg.ClosePayload
	if open {
		payload = cfg.OpenPayload
	}

	logger.L().Infof("Zone %v: commanding valve -> %v", z.name, payload)
	token := z.mqtt.SafePublish(cfg.CommandTopic, mqttQoS, false, payload)

	select {
	case <-token.Done():
		if token.Error() != nil {
			return errors.Wrapf(token.Error(), "zone %v: valve command publish failed", z.name)
		}
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "zone %v: valve command not acknowledged", z.name)
	}

	if cfg.StateTopic == "" {
		z.mu.Lock()
		changed := z.valveOpen != open
		z.valveOpen = open
		z.mu.Unlock()
		if changed {
			z.controlChan <- event{kind: evValveState, zone: z}
		}
	}

	return nil
}
