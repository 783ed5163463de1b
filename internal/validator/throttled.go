package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Throttled spaces out calls to the judge with a token bucket shared by all workers.
type Throttled struct {
	next    Validator
	limiter *rate.Limiter
}

func NewThrottled(next Validator, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Validate waits for a token. When the token would only arrive after the
// deadline of ctx, the reservation is given back and a deferred verdict is
// returned without calling the judge.
func (t *Throttled) Validate(ctx context.Context, req Request) Verdict {
	r := t.limiter.Reserve()
	if !r.OK() {
		return Defer(errors.New("judge throttle cannot grant a token"))
	}

	delay := r.Delay()
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return Defer(fmt.Errorf("judge capacity frees up in %s, after the attempt deadline", delay.Round(time.Millisecond)))
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			r.Cancel()
			return Defer(fmt.Errorf("waiting for judge capacity: %w", ctx.Err()))
		case <-timer.C:
		}
	}

	return t.next.Validate(ctx, req)
}
