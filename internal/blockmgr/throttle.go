package blockmgr

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle models the external capacity throttle the read sequence informs
// before issuing a direct read. It is a thin wrapper over a token-bucket
// limiter sized in bytes rather than requests.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle builds a Throttle permitting bytesPerSecond sustained, with
// burst headroom of burstBytes.
func NewThrottle(bytesPerSecond, burstBytes int) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burstBytes)}
}

// Reserve blocks until size bytes are available in the bucket, or until ctx
// is done.
func (t *Throttle) Reserve(ctx context.Context, size int) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.WaitN(ctx, size)
}
