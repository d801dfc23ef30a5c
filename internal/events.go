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
	"time"

	"github.com/antst/mzvc/internal/config"
	"github.com/antst/mzvc/internal/control"
)

const (
	mqttQoS         = 1
	childChanBuffer = 10
	eventChanBuffer = 100
	timerDuration   = 50 * time.Millisecond
	actuatorTimeout = 5 * time.Second
)

type eventKind int

const (
	evTemperature eventKind = iota
	evTarget
	evMode
	evValveState
	evConfig
	evForce
)

// event is the single inbound trigger type of the control loop. External
// adapters (sensors, setpoint/valve subscriptions, the main-unit mode
// feed, the config watcher, host commands) all publish through one channel
// consumed exclusively by the orchestrator goroutine.
type event struct {
	kind eventKind
	zone *ZoneController
	mode control.Mode
	cfg  *config.Config
}

// notifyForce signals the loop that a cycle is due without ever blocking
// the caller. Dropping the event when the queue is full is safe: a full
// queue already guarantees the loop will run a cycle. The loop goroutine
// itself must never send blocking on its own inbound channel.
func notifyForce(ch chan<- event) {
	select {
	case ch <- event{kind: evForce}:
	default:
	}
}
