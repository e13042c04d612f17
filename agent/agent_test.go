package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/backend/sim"
	"github.com/odvcencio/furry-store/hooks"
	"github.com/odvcencio/furry-store/runtime"
	"github.com/odvcencio/furry-store/state"
)

type counter struct {
	Count int
	Inc   func() error
}

func newCounter(set state.SetFunc[counter], _ state.GetFunc[counter], _ *state.Store[counter]) (*counter, error) {
	return &counter{
		Inc: func() error {
			return set.Update(func(c *counter) state.Patch {
				return state.Patch{"count": c.Count + 1}
			})
		},
	}, nil
}

func selectCount(c *counter) int { return c.Count }

func newCounterApp(t *testing.T, be *sim.Backend) (*runtime.App, *state.Store[counter]) {
	t.Helper()
	hook, store, err := hooks.Create(newCounter)
	require.NoError(t, err)
	root := runtime.ComponentFunc(func(ctx *runtime.RenderContext) []runtime.Element {
		count := hooks.Select(ctx.Scope, hook, selectCount)
		ctx.Text(0, fmt.Sprintf("count: %d", count), backend.DefaultStyle())
		return nil
	})
	app := runtime.NewApp(runtime.AppConfig{
		Backend: be,
		Root:    root,
		KeyHandler: runtime.KeyHandlerFunc(func(app *runtime.App, msg runtime.KeyMsg) bool {
			if msg.Key == backend.KeyRune && msg.Rune == '+' {
				assert.NoError(t, store.GetState().Inc())
				return true
			}
			return false
		}),
	})
	return app, store
}

func TestAgent_DrivesApp(t *testing.T) {
	be := sim.New(30, 4)
	app, store := newCounterApp(t, be)
	agt := New(Config{App: app, Sim: be})

	require.NoError(t, agt.Start(context.Background(), 2*time.Second))
	defer func() {
		assert.NoError(t, agt.Stop())
		assert.Zero(t, store.ListenerCount(), "listeners after stop")
	}()

	require.NoError(t, agt.WaitForText("count: 0", time.Second), agt.CaptureText())
	require.NoError(t, agt.Type("++"))
	require.NoError(t, agt.WaitForText("count: 2", time.Second), agt.CaptureText())
	x, y := agt.FindText("count")
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)

	require.NoError(t, store.GetState().Inc())
	require.NoError(t, agt.WaitForText("count: 3", time.Second), "external update")

	snap := agt.Snapshot()
	assert.Equal(t, 30, snap.Width)
	assert.Equal(t, 4, snap.Height)
	assert.Equal(t, 1, snap.Mounted)
	assert.GreaterOrEqual(t, snap.Renders, uint64(4))
	assert.GreaterOrEqual(t, snap.Frames, 4)
	raw, err := agt.SnapshotJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"renders\"")
}

func TestAgent_Resize(t *testing.T) {
	be := sim.New(20, 2)
	app, _ := newCounterApp(t, be)
	agt := New(Config{App: app, Sim: be})
	require.NoError(t, agt.Start(context.Background(), 2*time.Second))
	defer agt.Stop()

	require.NoError(t, agt.Resize(40, 5))
	assert.NoError(t, agt.WaitFor(func() bool {
		w, h := app.Tree().Size()
		return w == 40 && h == 5
	}, time.Second), "tree never resized")
}

func TestAgent_Errors(t *testing.T) {
	agt := New(Config{})
	assert.ErrorIs(t, agt.Start(context.Background(), time.Second), ErrNoApp)
	assert.ErrorIs(t, agt.WaitForText("never", 20*time.Millisecond), ErrTimeout)
	w, h := agt.Backend().Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 24, h)

	be := sim.New(10, 1)
	app, _ := newCounterApp(t, be)
	agt = New(Config{App: app, Sim: be})
	assert.ErrorIs(t, agt.Stop(), ErrNotRunning)
	require.NoError(t, agt.Start(context.Background(), 2*time.Second))
	assert.ErrorIs(t, agt.Start(context.Background(), time.Second), ErrRunning)
	assert.NoError(t, agt.Stop())
}

func TestAgent_NilSafe(t *testing.T) {
	var agt *Agent
	assert.False(t, agt.ContainsText("x"))
	assert.Empty(t, agt.CaptureText())
	x, y := agt.FindText("x")
	assert.Equal(t, -1, x)
	assert.Equal(t, -1, y)
	assert.ErrorIs(t, agt.SendKey(backend.KeyEnter, 0), ErrNoApp)
}
