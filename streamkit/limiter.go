package streamkit

import (
	"context"
	"time"

	"github.com/showwin/streamkit/streamkit/control"
	"github.com/showwin/streamkit/streamkit/internal"
	"go.uber.org/zap"
)

// RateLimiter bounds the bytes moved through a TransferFunc to
// bytesPerInterval per interval. Each sub-call is clamped to what is left
// of the current window's budget; once the budget is used up the caller
// sleeps until the window ends.
//
// A window also restarts when the caller pauses for longer than one
// interval, so idle time does not accumulate into a burst.
//
// A RateLimiter is not safe for concurrent use.
type RateLimiter struct {
	settings *settings
	fn       control.TransferFunc
	exit     control.ExitPredicate

	interval         time.Duration
	bytesPerInterval int
	consumed         int
	window           *internal.Timer
}

// NewRateLimiter wraps fn. exit is called with the bytes consumed in the
// current window and bytesPerInterval after every sub-call; a nil exit
// never ends an operation early. A non-positive bytesPerInterval disables
// throttling.
func NewRateLimiter(interval time.Duration, bytesPerInterval int, fn control.TransferFunc, exit control.ExitPredicate, opts ...Option) *RateLimiter {
	if interval <= 0 {
		interval = time.Second
	}
	if exit == nil {
		exit = control.NeverExit
	}
	s := newSettings(opts)
	return &RateLimiter{
		settings:         s,
		fn:               fn,
		exit:             exit,
		interval:         interval,
		bytesPerInterval: bytesPerInterval,
		window:           internal.NewTimer(s.clock),
	}
}

func (rl *RateLimiter) Interval() time.Duration { return rl.interval }

func (rl *RateLimiter) BytesPerInterval() int { return rl.bytesPerInterval }

// Throttle moves up to count bytes at buf[offset:] through the wrapped
// function, pacing sub-calls to the budget. It returns the bytes moved and
// the first error of a sub-call or of ctx while sleeping.
func (rl *RateLimiter) Throttle(ctx context.Context, buf []byte, offset, count int) (int, error) {
	if err := checkWindow(buf, offset, count); err != nil {
		return 0, err
	}
	if rl.bytesPerInterval <= 0 {
		if count == 0 {
			return 0, nil
		}
		return rl.fn(buf, offset, count)
	}

	total := 0
	for total < count {
		budget, err := rl.availableBudget(ctx)
		if err != nil {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
		chunk := min(budget, count-total)
		moved, err := rl.fn(buf, offset+total, chunk)
		total += moved
		rl.consumed += moved
		if err != nil {
			return total, err
		}
		if moved == 0 || rl.exit(rl.consumed, rl.bytesPerInterval) {
			return total, nil
		}
	}
	return total, nil
}

func (rl *RateLimiter) availableBudget(ctx context.Context) (int, error) {
	elapsed := rl.window.Elapsed()
	if elapsed > rl.interval {
		return rl.resetWindow(), nil
	}
	if open := rl.bytesPerInterval - rl.consumed; open > 0 {
		return open, nil
	}

	wait := max(rl.interval-elapsed, 0)
	rl.settings.log().Debug("rate limiter sleeping", zap.Duration("wait", wait), zap.Int("budget", rl.bytesPerInterval))
	if err := rl.sleep(ctx, wait); err != nil {
		return 0, err
	}
	return rl.resetWindow(), nil
}

func (rl *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := rl.settings.clock.Timer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rl *RateLimiter) resetWindow() int {
	rl.window.Reset()
	rl.consumed = 0
	return rl.bytesPerInterval
}
