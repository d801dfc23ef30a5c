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
	"sync"
	"time"

	"github.com/antst/mzvc/internal/control"
	"github.com/antst/mzvc/internal/logger"

	"golang.org/x/sync/errgroup"
)

type valveDispatcher interface {
	SetValve(ctx context.Context, open bool) error
}

// transitionScheduler executes transition plans. Opens always go out
// immediately; a deferred close batch waits out the transition delay in its
// own goroutine and is superseded (cancelled) by whatever the next cycle
// plans instead. At most one deferred batch is pending at a time.
type transitionScheduler struct {
	mu            sync.Mutex
	delay         time.Duration
	cancelPending context.CancelFunc
	wg            sync.WaitGroup
}

func newTransitionScheduler(delay time.Duration) *transitionScheduler {
	return &transitionScheduler{delay: delay}
}

func (s *transitionScheduler) setDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Apply dispatches one plan. Any previously pending deferred close batch is
// cancelled first: the new plan was computed from fresher state and already
// accounts for valves the old batch would have touched.
func (s *transitionScheduler) Apply(ctx context.Context, plan control.TransitionPlan, valves map[string]valveDispatcher) {
	s.CancelPending()

	if plan.Empty() {
		return
	}

	if len(plan.ToOpen) > 0 {
		s.fanOut(ctx, plan.ToOpen, valves, true)
	}

	if len(plan.ToClose) == 0 {
		return
	}

	if !plan.DeferClose {
		s.fanOut(ctx, plan.ToClose, valves, false)
		return
	}

	pendingCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	delay := s.delay
	s.cancelPending = cancel
	s.mu.Unlock()

	logger.L().Infof("Deferring close of %v by %v until new paths establish", plan.ToClose, delay)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-pendingCtx.Done():
			logger.L().Debugf("Deferred close of %v superseded", plan.ToClose)
			return
		case <-timer.C:
		}

		// Once committed, the batch runs to completion on its own
		// deadline; a superseding cycle can no longer retract it.
		dispatchCtx, done := context.WithTimeout(context.Background(), actuatorTimeout)
		defer done()
		s.fanOut(dispatchCtx, plan.ToClose, valves, false)
	}()
}

// CancelPending retracts a not-yet-committed deferred close batch.
func (s *transitionScheduler) CancelPending() {
	s.mu.Lock()
	cancel := s.cancelPending
	s.cancelPending = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown cancels pending work and waits for in-flight dispatches.
func (s *transitionScheduler) Shutdown() {
	s.CancelPending()
	s.wg.Wait()
}

// fanOut issues one command per valve concurrently. A failing actuator is
// logged and skipped; the others still get their commands, and the next
// reconcile pass retries whatever did not stick.
func (s *transitionScheduler) fanOut(ctx context.Context, names []string, valves map[string]valveDispatcher, open bool) {
	g := new(errgroup.Group)
	for _, name := range names {
		valve, ok := valves[name]
		if !ok {
			logger.L().Warnf("No valve registered for zone %v, skipping", name)
			continue
		}
		g.Go(func() error {
			callCtx, done := context.WithTimeout(ctx, actuatorTimeout)
			defer done()
			if err := valve.SetValve(callCtx, open); err != nil {
				logger.L().Error(err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
