package fn

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestFanOutPreservesOrder(t *testing.T) {
	tasks := make([]func(context.Context) int, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) int { return i * 2 }
	}
	got := FanOut(context.Background(), 3, tasks)
	for i, v := range got {
		if v != i*2 {
			t.Errorf("result[%d] = %d, want %d", i, v, i*2)
		}
	}
}

func TestFanOutRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	tasks := make([]func(context.Context) struct{}, 20)
	for i := range tasks {
		tasks[i] = func(context.Context) struct{} {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			inFlight.Add(-1)
			return struct{}{}
		}
	}
	FanOut(context.Background(), 4, tasks)
	if peak.Load() > 4 {
		t.Errorf("peak in-flight = %d, want <= 4", peak.Load())
	}
}

func TestFanOutEmpty(t *testing.T) {
	got := FanOut[int](context.Background(), 8, nil)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
