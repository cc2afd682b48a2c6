package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitorStartsOffline(t *testing.T) {
	m := NewMonitor(nil, 0)
	if m.IsOnline() {
		t.Error("IsOnline() = true before any observation, want false")
	}
}

func TestOnTransitionFiresOncePerEdge(t *testing.T) {
	m := NewMonitor(nil, 0)

	var online, offline int32
	m.OnTransition(func() { atomic.AddInt32(&online, 1) }, func() { atomic.AddInt32(&offline, 1) })

	sequence := []bool{true, true, true, false, false, true}
	for _, s := range sequence {
		m.SetOnline(s)
	}

	if got := atomic.LoadInt32(&online); got != 2 {
		t.Errorf("onOnline calls = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&offline); got != 1 {
		t.Errorf("onOffline calls = %d, want 1", got)
	}
}

func TestMultipleListenersAndUnsubscribe(t *testing.T) {
	m := NewMonitor(nil, 0)

	var a, b int32
	unsubA := m.OnTransition(func() { atomic.AddInt32(&a, 1) }, nil)
	m.OnTransition(func() { atomic.AddInt32(&b, 1) }, nil)

	m.SetOnline(true)
	unsubA()
	unsubA()
	m.SetOnline(false)
	m.SetOnline(true)

	if got := atomic.LoadInt32(&a); got != 1 {
		t.Errorf("unsubscribed listener calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&b); got != 2 {
		t.Errorf("subscribed listener calls = %d, want 2", got)
	}
}

func TestListenerMayCallMonitor(t *testing.T) {
	m := NewMonitor(nil, 0)
	done := make(chan bool, 1)
	m.OnTransition(func() { done <- m.IsOnline() }, nil)

	m.SetOnline(true)
	select {
	case got := <-done:
		if !got {
			t.Error("IsOnline() inside onOnline = false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("listener deadlocked")
	}
}

func TestCheckUsesProbe(t *testing.T) {
	var fail atomic.Bool
	m := NewMonitor(func(ctx context.Context) error {
		if fail.Load() {
			return errors.New("connection refused")
		}
		return nil
	}, time.Second)

	if !m.Check(context.Background()) || !m.IsOnline() {
		t.Error("Check() with healthy probe should go online")
	}
	fail.Store(true)
	if m.Check(context.Background()) || m.IsOnline() {
		t.Error("Check() with failing probe should go offline")
	}
}

func TestStartProbesPeriodically(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	if !m.IsOnline() {
		t.Error("Start() should probe immediately")
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() < 3 {
		t.Errorf("probe calls = %d, want at least 3", calls.Load())
	}
}
