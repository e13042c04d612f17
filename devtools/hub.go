// Package devtools publishes store transitions to websocket clients such as
// the storeinspect command. Clients only observe: nothing they send changes a
// store.
package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAddr is where ListenAndServe listens when Config.Addr is empty.
	DefaultAddr = "127.0.0.1:7411"
	// DefaultPath is the websocket endpoint.
	DefaultPath = "/devtools"
)

// ErrClosed is returned after the hub has been closed.
var ErrClosed = errors.New("devtools: hub closed")

// EventType names what happened to a store.
type EventType string

const (
	// EventInit carries the state of a store the client has not seen yet.
	EventInit EventType = "init"
	// EventSet carries the state after a transition.
	EventSet EventType = "set"
	// EventClose reports that a store was destroyed. Its state is null.
	EventClose EventType = "close"
)

// Event is one message on the wire.
type Event struct {
	Seq      uint64          `json:"seq"`
	Type     EventType       `json:"type"`
	Instance string          `json:"instance"`
	Store    string          `json:"store"`
	Action   string          `json:"action,omitempty"`
	Replace  bool            `json:"replace,omitempty"`
	Time     time.Time       `json:"time"`
	State    json.RawMessage `json:"state"`
}

// Config configures a Hub.
type Config struct {
	// Addr is the listen address for ListenAndServe (default DefaultAddr).
	Addr string
	// Path is the websocket endpoint (default DefaultPath).
	Path string
	// WriteTimeout bounds each websocket write (default 2s).
	WriteTimeout time.Duration
	// Logger receives connection events. Defaults to a discarding logger.
	Logger *logrus.Entry
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = logrus.NewEntry(l)
	}
	return c
}

// Hub fans store events out to connected clients and remembers the latest
// event of every instance for clients that connect later.
type Hub struct {
	cfg      Config
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	clients   map[*client]struct{}
	instances []*Instance
	latest    map[string]Event
	seq       uint64
	closed    bool
	server    *http.Server
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a hub.
func NewHub(cfg Config) *Hub {
	cfg = cfg.withDefaults()
	return &Hub{
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "devtools"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
		latest:  make(map[string]Event),
	}
}

// Config returns the effective configuration.
func (h *Hub) Config() Config {
	return h.cfg
}

// Connect registers a store with the hub. snapshot is called whenever the
// store's state must be sent.
func (h *Hub) Connect(name string, snapshot func() any) *Instance {
	inst := &Instance{
		hub:      h,
		id:       ulid.Make().String(),
		name:     name,
		snapshot: snapshot,
	}
	h.mu.Lock()
	h.instances = append(h.instances, inst)
	h.mu.Unlock()
	return inst
}

// Handler returns an http.Handler serving the websocket endpoint at
// Config.Path.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(h.cfg.Path, h)
	return mux
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. The client first receives the latest event of every instance.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}
	c := &client{conn: conn}

	for _, ev := range h.Latest() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := c.write(data, h.cfg.WriteTimeout); err != nil {
			conn.Close()
			return
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.WithField("remote", r.RemoteAddr).Debug("client connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(c)
	h.logger.WithField("remote", r.RemoteAddr).Debug("client disconnected")
}

// Latest returns the latest event of each instance in registration order.
// Instances that never published are snapshotted now as init events.
func (h *Hub) Latest() []Event {
	h.mu.RLock()
	instances := append([]*Instance(nil), h.instances...)
	h.mu.RUnlock()

	out := make([]Event, 0, len(instances))
	for _, inst := range instances {
		h.mu.RLock()
		ev, ok := h.latest[inst.id]
		h.mu.RUnlock()
		if !ok {
			var err error
			ev, err = inst.event(EventInit, "", false)
			if err != nil {
				h.logger.WithError(err).WithField("store", inst.name).Warn("snapshot failed")
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// Publish stamps ev with the next sequence number and sends it to every
// client. It becomes the latest event of its instance unless it is a close
// event.
func (h *Hub) Publish(ev Event) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.seq++
	ev.Seq = h.seq
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if ev.Type == EventClose {
		delete(h.latest, ev.Instance)
	} else if h.connected(ev.Instance) {
		h.latest[ev.Instance] = ev
	}
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("devtools: encode event: %w", err)
	}
	for _, c := range clients {
		if err := c.write(data, h.cfg.WriteTimeout); err != nil {
			h.drop(c)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ListenAndServe serves the hub on Config.Addr until ctx is cancelled or
// the hub is closed.
func (h *Hub) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("devtools: listen: %w", err)
	}
	return h.Serve(ctx, ln)
}

// Serve serves the hub on ln until ctx is cancelled or the hub is closed.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ln.Close()
		return ErrClosed
	}
	h.server = srv
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = h.Close()
	}()
	h.logger.WithField("addr", ln.Addr().String()).Info("devtools listening")
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close disconnects every client and stops the server, if any.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	srv := h.server
	h.mu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
	if srv != nil {
		return srv.Close()
	}
	return nil
}

// connected reports whether an instance with id is registered. h.mu must
// be held.
func (h *Hub) connected(id string) bool {
	for _, inst := range h.instances {
		if inst.id == id {
			return true
		}
	}
	return false
}

func (h *Hub) disconnect(inst *Instance) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, other := range h.instances {
		if other == inst {
			h.instances = append(h.instances[:i], h.instances[i+1:]...)
			delete(h.latest, inst.id)
			return true
		}
	}
	return false
}

// Instances returns the number of registered instances.
func (h *Hub) Instances() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.instances)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}
