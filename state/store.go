// Package state provides an external state container for terminal UIs.
//
// A Store owns one state value outside the widget tree. Consumers read it
// directly, subscribe to every transition, or subscribe to a derived slice
// that only notifies when the slice changes under an equality function.
package state

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInitializer wraps failures raised while building the initial state.
	ErrInitializer = errors.New("state: initializer failed")
	// ErrNilState is returned when a nil state value is supplied.
	ErrNilState = errors.New("state: nil state")
	// ErrNilPartial is returned by SetState when partial is nil.
	ErrNilPartial = errors.New("state: nil partial")
)

// Listener receives every transition. state is the value current when the
// listener is dispatched; prev is the value replaced by the transition.
type Listener[T any] func(state, prev *T)

// GetFunc reads the current state.
type GetFunc[T any] func() *T

// Initializer builds the initial state. It receives the store's set and get
// functions (already wrapped by middleware) and the store itself.
type Initializer[T any] func(set SetFunc[T], get GetFunc[T], api *Store[T]) (*T, error)

// Middleware wraps the set function handed to the initializer and used by
// Store.SetState. It must call set to apply a transition.
type Middleware[T any] func(set SetFunc[T], get GetFunc[T], api *Store[T]) SetFunc[T]

// Option configures a Store.
type Option[T any] func(*options[T])

type options[T any] struct {
	name       string
	logger     *logrus.Entry
	middleware []Middleware[T]
}

// WithName labels the store in logs, metrics and devtools.
func WithName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// WithLogger sets the logger used for store lifecycle events.
func WithLogger[T any](logger *logrus.Entry) Option[T] {
	return func(o *options[T]) {
		o.logger = logger
	}
}

// WithMiddleware appends middleware. The first middleware is outermost.
func WithMiddleware[T any](mw ...Middleware[T]) Option[T] {
	return func(o *options[T]) {
		o.middleware = append(o.middleware, mw...)
	}
}

// Store holds a state value and notifies listeners when it is replaced.
//
// The mutex guards the state pointer and the listener registry; it is never
// held while user code (partials, selectors, listeners) runs. Transitions
// made on one goroutine are delivered completely before SetState returns,
// and a SetState issued from inside a listener runs its own pass to
// completion before the outer pass continues.
type Store[T any] struct {
	mu        sync.Mutex
	state     *T
	listeners registry[T]
	destroyed bool
	teardown  []func()

	set    SetFunc[T]
	id     ulid.ULID
	name   string
	logger *logrus.Entry
}

// New builds a store from init. Creation fails if init returns an error or
// a nil state.
func New[T any](init Initializer[T], opts ...Option[T]) (*Store[T], error) {
	if init == nil {
		return nil, fmt.Errorf("%w: nil initializer", ErrInitializer)
	}
	cfg := options[T]{name: "store"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}

	s := &Store[T]{
		id:   ulid.Make(),
		name: cfg.name,
	}
	s.logger = cfg.logger.WithFields(logrus.Fields{
		"store":    s.name,
		"store_id": s.id.String(),
	})

	get := GetFunc[T](s.GetState)
	set := SetFunc[T](s.setState)
	for i := len(cfg.middleware) - 1; i >= 0; i-- {
		if mw := cfg.middleware[i]; mw != nil {
			set = mw(set, get, s)
		}
	}
	s.set = set

	initial, err := init(set, get, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitializer, err)
	}
	if initial == nil {
		return nil, fmt.Errorf("%w: %w", ErrInitializer, ErrNilState)
	}
	s.mu.Lock()
	s.state = initial
	s.mu.Unlock()
	s.logger.Debug("store created")
	return s, nil
}

// MustNew is like New but panics on error. It suits package-level stores.
func MustNew[T any](init Initializer[T], opts ...Option[T]) *Store[T] {
	s, err := New(init, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the unique store identifier.
func (s *Store[T]) ID() ulid.ULID {
	return s.id
}

// Name returns the store label.
func (s *Store[T]) Name() string {
	return s.name
}

// Logger returns the store's logger.
func (s *Store[T]) Logger() *logrus.Entry {
	return s.logger
}

// GetState returns the current state.
func (s *Store[T]) GetState() *T {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return state
}

// SetState applies partial through the middleware chain. With replace the
// result is not merged onto the previous state.
func (s *Store[T]) SetState(partial Partial[T], replace bool) error {
	if s == nil {
		return ErrNilState
	}
	return s.set(partial, replace)
}

// setState is the innermost set. partial is resolved outside the lock, so a
// transition is not atomic against writers on other goroutines.
func (s *Store[T]) setState(partial Partial[T], replace bool) error {
	if partial == nil {
		return ErrNilPartial
	}
	prev := s.GetState()
	next, err := partial.resolve(prev, replace)
	if err != nil {
		return err
	}
	if next == prev {
		return nil
	}
	if next == nil {
		return ErrNilState
	}

	s.mu.Lock()
	s.state = next
	entries := s.listeners.snapshot()
	s.mu.Unlock()

	for _, l := range entries {
		if !l.active.Load() {
			continue
		}
		l.notify(s.GetState(), prev)
	}
	return nil
}

// Subscribe registers listener for every transition and returns its
// unsubscribe function. Calling it more than once is a no-op.
func (s *Store[T]) Subscribe(listener Listener[T]) func() {
	if s == nil || listener == nil {
		return func() {}
	}
	return s.subscribe(listener)
}

func (s *Store[T]) subscribe(fn func(state, prev *T)) func() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return func() {}
	}
	entry := s.listeners.add(fn)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.listeners.remove(entry)
			s.mu.Unlock()
		})
	}
}

// ListenerCount reports the number of registered listeners.
func (s *Store[T]) ListenerCount() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners.len()
}

// Destroy removes every listener. It is terminal: later transitions still
// update the state but never notify anyone.
func (s *Store[T]) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	removed := s.listeners.len()
	s.listeners.clear()
	teardown := s.teardown
	s.teardown = nil
	s.mu.Unlock()
	for _, fn := range teardown {
		fn()
	}
	s.logger.WithField("listeners", removed).Debug("store destroyed")
}

// OnDestroy registers fn to run once when the store is destroyed, after its
// listeners are gone. Middleware uses it to release what it attached to the
// store. fn runs immediately if the store is already destroyed.
func (s *Store[T]) OnDestroy(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	if !s.destroyed {
		s.teardown = append(s.teardown, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Destroyed reports whether Destroy has been called.
func (s *Store[T]) Destroyed() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
