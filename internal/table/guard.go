package table

import "context"

// guard is an exclusive-access primitive whose acquisition can be abandoned
// through a context.
type guard struct {
	slot chan struct{}
}

func newGuard() *guard {
	return &guard{slot: make(chan struct{}, 1)}
}

// acquire blocks until the guard is owned or ctx is done.
func (g *guard) acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release gives up ownership. Only the current owner may call it.
func (g *guard) release() {
	<-g.slot
}

// with runs fn while owning g. The guard is released on every path out of fn.
func (g *guard) with(ctx context.Context, fn func() error) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()
	return fn()
}
