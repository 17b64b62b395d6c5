package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation outlives its limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished
	// after a newer one had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	scene  *Scene
	errors []EvalError
	err    error
}

// generation numbers evaluations so that a result arriving after a newer
// Evaluate call can be recognized and dropped.
type generation struct {
	n atomic.Uint64
}

func (g *generation) next() uint64 { return g.n.Add(1) }

// wait blocks for the result of evaluation gen. An abandoned goroutine
// keeps running after a timeout or cancellation; its buffered send is
// simply never read.
func (g *generation) wait(ctx context.Context, ch <-chan evalResult, gen uint64, limit time.Duration) (*Scene, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		if g.n.Load() != gen {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("evaluation canceled: %w", ctx.Err())
	}
}
