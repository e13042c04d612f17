// Package runtime drives a tree of hook-based components against a terminal
// backend. It hosts the hook scopes from package hooks: a render pass runs
// every component, then a commit phase runs the effects the hooks scheduled,
// and a store change that a mounted component depends on invalidates the
// tree through the app loop.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/furry-store/backend"
	"github.com/odvcencio/furry-store/state"
)

// ErrNoBackend is returned by Run when no backend is configured.
var ErrNoBackend = errors.New("runtime: backend is required")

// UpdateFunc handles a message and returns true if a render is needed.
type UpdateFunc func(app *App, msg Message) bool

// CommandHandler handles commands emitted by components.
// Return true if the command requires a render.
type CommandHandler func(cmd Command) bool

// KeyHandler sees key presses before the component tree does.
type KeyHandler interface {
	HandleKey(app *App, msg KeyMsg) bool
}

// KeyHandlerFunc adapts a function to KeyHandler.
type KeyHandlerFunc func(app *App, msg KeyMsg) bool

// HandleKey calls f.
func (f KeyHandlerFunc) HandleKey(app *App, msg KeyMsg) bool {
	return f(app, msg)
}

// AppConfig configures a runtime App.
type AppConfig struct {
	Backend        backend.Backend
	Root           Component
	Update         UpdateFunc
	CommandHandler CommandHandler
	KeyHandler     KeyHandler
	// MessageBuffer bounds the loop inbox. Posts beyond it are dropped.
	MessageBuffer int
	// TickRate posts a TickMsg at this interval when positive.
	TickRate time.Duration
	Logger   *logrus.Entry
}

// App runs a component tree against a terminal backend. Store changes
// reach it through the hooks of mounted components, which wake the loop
// for a new frame.
type App struct {
	backend        backend.Backend
	tree           *Tree
	update         UpdateFunc
	commandHandler CommandHandler
	keyHandler     KeyHandler
	messages       chan Message
	tickRate       time.Duration
	logger         *logrus.Entry

	tasks     *tasks
	writes    *state.Queue
	flushWake *wake
	drawWake  *wake
	dirtyWake *wake

	running   atomic.Bool
	dropped   atomic.Uint64
	ready     chan struct{}
	readyOnce sync.Once
	renderMu  sync.Mutex
}

// NewApp creates a new App from config.
func NewApp(cfg AppConfig) *App {
	size := cfg.MessageBuffer
	if size <= 0 {
		size = 128
	}
	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = logrus.NewEntry(discard)
	}
	a := &App{
		backend:        cfg.Backend,
		tree:           NewTree(0, 0),
		update:         cfg.Update,
		commandHandler: cfg.CommandHandler,
		keyHandler:     cfg.KeyHandler,
		messages:       make(chan Message, size),
		tickRate:       cfg.TickRate,
		logger:         logger.WithField("component", "runtime"),
		writes:         state.NewQueue(),
		ready:          make(chan struct{}),
	}
	if a.update == nil {
		a.update = DefaultUpdate
	}
	a.tasks = &tasks{post: a.tryPost, logger: a.logger}
	a.flushWake = &wake{msg: flushMsg{}, post: a.tryPost}
	a.drawWake = &wake{msg: InvalidateMsg{}, post: a.tryPost}
	a.dirtyWake = &wake{msg: dirtyMsg{}, post: a.tryPost}
	a.tree.SetLoop(a.Loop())
	a.tree.SetLogger(a.logger)
	a.tree.OnInvalidate(a.dirtyWake.fire)
	if cfg.Root != nil {
		a.tree.SetRoot(cfg.Root)
	}
	return a
}

// Tree returns the component tree. Only the loop goroutine may render it.
func (a *App) Tree() *Tree {
	if a == nil {
		return nil
	}
	return a.tree
}

// Ready is closed once the first frame is on screen.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Logger returns the app logger.
func (a *App) Logger() *logrus.Entry {
	return a.logger
}

// Dropped returns how many posts were dropped because the inbox was full.
func (a *App) Dropped() uint64 {
	return a.dropped.Load()
}

// Invalidate asks for a full frame. Calls between two frames coalesce.
// Components whose hooks request an update get a partial frame instead.
func (a *App) Invalidate() {
	if a != nil {
		a.drawWake.fire()
	}
}

// Spawn runs task until the app stops. Before Run it waits for the loop
// to start.
func (a *App) Spawn(task Task) {
	if a != nil {
		a.tasks.spawn(task)
	}
}

// After posts msg once delay has passed.
func (a *App) After(delay time.Duration, msg Message) {
	a.Spawn(After(delay, msg))
}

// Every posts what fn returns on each tick of interval.
func (a *App) Every(interval time.Duration, fn func(time.Time) Message) {
	a.Spawn(Every(interval, fn))
}

// SetRoot swaps the root component. Call it before Run or from the loop.
func (a *App) SetRoot(root Component) {
	a.tree.SetRoot(root)
	a.Invalidate()
}

// Post sends a message to the loop, dropping it when the inbox is full.
func (a *App) Post(msg Message) {
	_ = a.tryPost(msg)
}

// TryPost is Post that reports whether msg was queued.
func (a *App) TryPost(msg Message) bool {
	return a.tryPost(msg)
}

func (a *App) tryPost(msg Message) bool {
	if a == nil || a.messages == nil || msg == nil {
		return false
	}
	select {
	case a.messages <- msg:
		return true
	default:
		a.dropped.Add(1)
		a.logger.WithField("message", fmt.Sprintf("%T", msg)).Warn("message dropped")
		return false
	}
}

// Run starts the event loop and blocks until Quit or ctx is done. The tree
// is unmounted, and every store subscription it held released, before Run
// returns.
func (a *App) Run(ctx context.Context) error {
	if a.backend == nil {
		return ErrNoBackend
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	defer a.backend.Fini()
	defer a.tree.Unmount()
	a.tasks.start(ctx)
	defer a.tasks.stop()

	a.backend.HideCursor()
	w, h := a.backend.Size()
	a.tree.Resize(w, h)
	a.logger.WithFields(logrus.Fields{"width": w, "height": h}).Debug("app started")
	go a.pollEvents()

	var ticks <-chan time.Time
	if a.tickRate > 0 {
		ticker := time.NewTicker(a.tickRate)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var err error
	dirty := true
	a.running.Store(true)
	for a.running.Load() {
		switch {
		case dirty:
			a.render(a.tree.Render)
			dirty = false
		case a.tree.NeedsRender():
			a.render(a.tree.RenderDirty)
		}
		select {
		case <-ctx.Done():
			a.running.Store(false)
			err = ctx.Err()
			continue
		case msg := <-a.messages:
			dirty = a.step(msg)
		case now := <-ticks:
			dirty = a.step(TickMsg{Time: now})
		}
	}

	a.logger.WithField("dropped", a.dropped.Load()).Debug("app stopped")
	return err
}

// step handles one message and then applies deferred writes, so a write
// handed over during the message lands before the next frame. It reports
// whether the next frame must render the whole tree. Store writes reach
// the frame through the hooks they invalidate.
func (a *App) step(msg Message) bool {
	switch msg.(type) {
	case InvalidateMsg:
		a.drawWake.rearm()
	case dirtyMsg:
		a.dirtyWake.rearm()
	case flushMsg:
		a.flushWake.rearm()
	}
	dirty := a.update(a, msg)
	a.writes.Flush()
	return dirty
}

// DefaultUpdate resizes the tree, routes keys through the KeyHandler and
// then the tree, and runs the commands components return.
func DefaultUpdate(app *App, msg Message) bool {
	if app == nil || app.tree == nil {
		return false
	}
	switch m := msg.(type) {
	case ResizeMsg:
		app.tree.Resize(m.Width, m.Height)
		return true
	case KeyMsg:
		if app.keyHandler != nil && app.keyHandler.HandleKey(app, m) {
			return true
		}
		return app.dispatchMessage(msg)
	case InvalidateMsg:
		return true
	case dirtyMsg, flushMsg:
		return false
	case CommandMsg:
		return m.Command != nil && app.handleCommand(m.Command)
	default:
		return app.dispatchMessage(msg)
	}
}

func (a *App) dispatchMessage(msg Message) bool {
	result := a.tree.HandleMessage(msg)
	dirty := result.Handled
	for _, cmd := range result.Commands {
		if a.handleCommand(cmd) {
			dirty = true
		}
	}
	return dirty
}

func (a *App) handleCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case Quit:
		a.running.Store(false)
		a.tasks.interrupt()
		return false
	case Refresh:
		a.tree.Buffer().MarkAllDirty()
		return true
	case Send:
		a.Post(c.Message)
		return false
	case Task:
		a.tasks.spawn(c)
		return false
	case Write:
		return a.applyWrite(c)
	default:
		if a.commandHandler != nil {
			return a.commandHandler(cmd)
		}
		a.logger.WithField("command", fmt.Sprintf("%T", cmd)).Debug("unhandled command")
		return false
	}
}

func (a *App) applyWrite(w Write) bool {
	if w.Apply == nil {
		return false
	}
	if err := w.Apply(); err != nil {
		a.logger.WithError(err).WithField("store", w.Store).Warn("store write failed")
	}
	return false
}

// ExecuteCommand runs cmd as if a component had returned it.
func (a *App) ExecuteCommand(cmd Command) bool {
	if a == nil || cmd == nil {
		return false
	}
	return a.handleCommand(cmd)
}

func (a *App) pollEvents() {
	for {
		ev := a.backend.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case backend.KeyEvent:
			a.Post(KeyMsg{
				Key:   e.Key,
				Rune:  e.Rune,
				Alt:   e.Alt,
				Ctrl:  e.Ctrl,
				Shift: e.Shift,
			})
		case backend.ResizeEvent:
			a.Post(ResizeMsg{Width: e.Width, Height: e.Height})
		}
	}
}

func (a *App) render(pass func()) {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	pass()
	buf := a.tree.Buffer()
	if buf.IsDirty() {
		w, h := buf.Size()
		cells := buf.Cells()
		rowWriter, hasRowWriter := a.backend.(backend.RowWriter)
		rectWriter, hasRectWriter := a.backend.(backend.RectWriter)
		switch {
		case hasRectWriter && buf.DirtyCount() == w*h:
			rectWriter.SetRect(0, 0, w, h, cells)
		case hasRowWriter:
			buf.ForEachDirtySpan(func(y, startX, endX int) {
				rowStart := y * w
				rowWriter.SetRow(y, startX, cells[rowStart+startX:rowStart+endX])
			})
		default:
			buf.ForEachDirtySpan(func(y, startX, endX int) {
				for x := startX; x < endX; x++ {
					cell := cells[y*w+x]
					if cell.Rune == 0 {
						continue
					}
					a.backend.SetContent(x, y, cell.Rune, nil, cell.Style)
				}
			})
		}
		buf.ClearDirty()
	}
	a.backend.Show()
	a.readyOnce.Do(func() { close(a.ready) })
}
