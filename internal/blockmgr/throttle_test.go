package blockmgr

import (
	"context"
	"testing"
	"time"
)

func TestThrottleReserveWithinBurstDoesNotBlock(t *testing.T) {
	th := NewThrottle(1<<20, 1<<20)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := th.Reserve(ctx, 4096); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
}

func TestThrottleReserveExceedingBurstRespectsContext(t *testing.T) {
	th := NewThrottle(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := th.Reserve(ctx, 1<<20); err == nil {
		t.Fatalf("Reserve beyond burst with short deadline did not fail")
	}
}

func TestNilThrottleIsNoop(t *testing.T) {
	var th *Throttle
	if err := th.Reserve(context.Background(), 1000); err != nil {
		t.Fatalf("nil throttle Reserve: %v", err)
	}
}
