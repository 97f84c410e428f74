package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vrsandeep/readme-console/internal/models"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestRegistry(b Backend) (*Registry, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(func(id string) *Console { return New(id, b) })
	r.now = clock.now
	return r, clock
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r, _ := newTestRegistry(newStubBackend())

	_, ok := r.Get("a")
	assert.False(t, ok)

	a := r.GetOrCreate("a")
	assert.Equal(t, "a", a.ID())
	assert.Same(t, a, r.GetOrCreate("a"))

	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)

	r.GetOrCreate("b")
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Prune(t *testing.T) {
	stub := newStubBackend()
	r, clock := newTestRegistry(stub)

	r.GetOrCreate("old")
	busy := r.GetOrCreate("busy")
	busy.Start(context.Background(), models.SubmissionInput{RepoURL: "x"})
	call := <-stub.calls

	clock.t = clock.t.Add(10 * time.Minute)
	r.GetOrCreate("fresh")

	clock.t = clock.t.Add(25 * time.Minute)
	removed := r.Prune(30 * time.Minute)

	assert.Equal(t, 1, removed)
	_, ok := r.Get("old")
	assert.False(t, ok, "idle console should be pruned")
	_, ok = r.Get("busy")
	assert.True(t, ok, "busy console must be kept")
	_, ok = r.Get("fresh")
	assert.True(t, ok)

	call.reply <- stubResult{resp: &models.GenerateResponse{Readme: "x"}}
}

func TestRegistry_CloseAll(t *testing.T) {
	stub := newStubBackend()
	r, _ := newTestRegistry(stub)

	c := r.GetOrCreate("a")
	cyc := c.Start(context.Background(), models.SubmissionInput{RepoURL: "x"})
	call := <-stub.calls

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	assert.False(t, c.Busy())

	call.reply <- stubResult{err: context.Canceled}
	cyc.Wait()
}
