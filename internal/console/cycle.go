package console

import (
	"context"
	"sync"
	"time"

	"github.com/vrsandeep/readme-console/internal/backend"
)

// Cycle is one submission. It owns the request context and the progress
// subscription, both released by stop.
type Cycle struct {
	Number uint64
	// Token correlates the progress stream with the generation request.
	Token string

	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	// settled is guarded by the owning Console's mutex.
	settled bool

	subMu   sync.Mutex
	sub     *backend.Subscription
	stopped bool
}

// Done is closed once the generation request has returned and its outcome
// has been applied or discarded.
func (cyc *Cycle) Done() <-chan struct{} {
	return cyc.done
}

// Wait blocks until Done.
func (cyc *Cycle) Wait() {
	<-cyc.done
}

// attach hands the open subscription to the cycle. It reports false when the
// cycle has already stopped; the caller must then close sub itself.
func (cyc *Cycle) attach(sub *backend.Subscription) bool {
	cyc.subMu.Lock()
	defer cyc.subMu.Unlock()
	if cyc.stopped {
		return false
	}
	cyc.sub = sub
	return true
}

// stop cancels the request and closes the subscription. Idempotent.
func (cyc *Cycle) stop() {
	cyc.subMu.Lock()
	sub := cyc.sub
	cyc.sub = nil
	cyc.stopped = true
	cyc.subMu.Unlock()

	if sub != nil {
		sub.Close()
	}
	cyc.cancel()
}
