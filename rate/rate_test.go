package rate

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives the gate deterministically: sleeps advance the clock
// instead of blocking.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	cancel bool
}

func newFakeGate(interval time.Duration) (*Gate, *fakeClock) {
	c := &fakeClock{now: time.Unix(1000, 0)}
	g := NewGate(interval)
	g.now = func() time.Time { return c.now }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		if c.cancel {
			return context.Canceled
		}
		c.slept = append(c.slept, d)
		c.now = c.now.Add(d)
		return nil
	}
	return g, c
}

func TestWait_FirstCallAfterIdleIsImmediate(t *testing.T) {
	g, c := newFakeGate(2 * time.Second)

	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(c.slept) != 0 {
		t.Fatalf("slept %v on idle gate", c.slept)
	}
}

func TestWait_EnforcesInterval(t *testing.T) {
	g, c := newFakeGate(2 * time.Second)

	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Half a second later the gate must hold us 1.5s.
	c.now = c.now.Add(500 * time.Millisecond)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(c.slept) != 1 || c.slept[0] != 1500*time.Millisecond {
		t.Fatalf("slept %v, want [1.5s]", c.slept)
	}
}

func TestWait_NoGateWhenDisabled(t *testing.T) {
	g, c := newFakeGate(0)
	for i := 0; i < 3; i++ {
		if err := g.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(c.slept) != 0 {
		t.Fatalf("slept %v with disabled gate", c.slept)
	}
}

func TestWait_Cancellation(t *testing.T) {
	g, c := newFakeGate(time.Second)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.cancel = true
	if err := g.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWait_NilGate(t *testing.T) {
	var g *Gate
	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}
