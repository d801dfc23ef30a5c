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
	"testing"
	"time"

	"github.com/antst/mzvc/internal/control"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValve struct {
	mu    sync.Mutex
	calls []bool
}

func (f *fakeValve) SetValve(ctx context.Context, open bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, open)
	return nil
}

func (f *fakeValve) Calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestSchedulerImmediateDispatch(t *testing.T) {
	s := newTransitionScheduler(time.Hour)
	a, b := &fakeValve{}, &fakeValve{}
	valves := map[string]valveDispatcher{"a": a, "b": b}

	s.Apply(context.Background(), control.TransitionPlan{
		ToOpen:  []string{"a"},
		ToClose: []string{"b"},
	}, valves)
	s.Shutdown()

	assert.Equal(t, []bool{true}, a.Calls())
	assert.Equal(t, []bool{false}, b.Calls())
}

func TestSchedulerDeferredClose(t *testing.T) {
	s := newTransitionScheduler(50 * time.Millisecond)
	a, b := &fakeValve{}, &fakeValve{}
	valves := map[string]valveDispatcher{"a": a, "b": b}

	s.Apply(context.Background(), control.TransitionPlan{
		ToOpen:     []string{"a"},
		ToClose:    []string{"b"},
		DeferClose: true,
	}, valves)

	require.Equal(t, []bool{true}, a.Calls(), "open goes out immediately")
	assert.Empty(t, b.Calls(), "close held back for the transition delay")

	assert.Eventually(t, func() bool {
		calls := b.Calls()
		return len(calls) == 1 && !calls[0]
	}, time.Second, 10*time.Millisecond)

	s.Shutdown()
}

func TestSchedulerNewPlanSupersedesDeferredClose(t *testing.T) {
	s := newTransitionScheduler(100 * time.Millisecond)
	b := &fakeValve{}
	valves := map[string]valveDispatcher{"a": &fakeValve{}, "b": b}

	s.Apply(context.Background(), control.TransitionPlan{
		ToOpen:     []string{"a"},
		ToClose:    []string{"b"},
		DeferClose: true,
	}, valves)

	// Next cycle plans nothing: the pending close batch is retracted.
	s.Apply(context.Background(), control.TransitionPlan{}, valves)
	s.Shutdown()

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, b.Calls())
}

func TestSchedulerShutdownCancelsPending(t *testing.T) {
	s := newTransitionScheduler(100 * time.Millisecond)
	b := &fakeValve{}
	valves := map[string]valveDispatcher{"a": &fakeValve{}, "b": b}

	s.Apply(context.Background(), control.TransitionPlan{
		ToOpen:     []string{"a"},
		ToClose:    []string{"b"},
		DeferClose: true,
	}, valves)
	s.Shutdown()

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, b.Calls())
}

func TestSchedulerUnknownZoneSkipped(t *testing.T) {
	s := newTransitionScheduler(time.Hour)
	a := &fakeValve{}

	s.Apply(context.Background(), control.TransitionPlan{
		ToOpen: []string{"a", "ghost"},
	}, map[string]valveDispatcher{"a": a})
	s.Shutdown()

	assert.Equal(t, []bool{true}, a.Calls())
}
