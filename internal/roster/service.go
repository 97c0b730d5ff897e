package roster

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"parley/internal/pubsub"
	"parley/internal/topics"
)

const (
	// DefaultStaleThreshold is how long a registration whose connection
	// is no longer attached may linger before the cleanup pass drops
	// it. Live connections are never expired; they register only once.
	DefaultStaleThreshold = 2 * time.Minute

	// DefaultOfflineDebounce is how long to wait after a user's last
	// connection closes before removing them from the roster. Page
	// reloads reconnect well inside this window.
	DefaultOfflineDebounce = 5 * time.Second

	cleanupInterval = 30 * time.Second
)

// Snapshot is the payload published on the roster topic. Names is the
// complete roster; consumers replace their state with it, never merge.
type Snapshot struct {
	Names []string `json:"names"`
}

type registration struct {
	name string
	seen time.Time
}

// Liveness reports whether a connection is still attached to its
// transport. The cleanup pass spares live connections and refreshes
// their registrations.
type Liveness func(connID string) bool

// Service tracks which users are registered and publishes full roster
// snapshots whenever the set changes.
type Service struct {
	mu          sync.Mutex
	byConn      map[string]registration        // connID -> registration
	connsByName map[string]map[string]struct{} // name -> connIDs

	publisher pubsub.Publisher
	logger    *slog.Logger

	isLive          Liveness
	staleThreshold  time.Duration
	offlineDebounce time.Duration
	offlineTimers   map[string]*time.Timer

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// Option configures a Service.
type Option func(*Service)

// WithStaleThreshold sets a custom stale threshold.
func WithStaleThreshold(d time.Duration) Option {
	return func(s *Service) {
		s.staleThreshold = d
	}
}

// WithLiveness gives the cleanup pass a way to ask whether a connection
// is still attached. Without it, cleanup falls back to register recency
// alone.
func WithLiveness(fn Liveness) Option {
	return func(s *Service) {
		s.isLive = fn
	}
}

// WithOfflineDebounce sets a custom debounce delay for offline events.
// Zero disables debouncing, which tests rely on.
func WithOfflineDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.offlineDebounce = d
	}
}

// NewService creates the roster service and subscribes it to the client
// lifecycle topics.
func NewService(ctx context.Context, pub pubsub.Publisher, sub pubsub.Subscriber, opts ...Option) *Service {
	svc := &Service{
		byConn:          make(map[string]registration),
		connsByName:     make(map[string]map[string]struct{}),
		publisher:       pub,
		logger:          slog.Default().With("service", "roster"),
		staleThreshold:  DefaultStaleThreshold,
		offlineDebounce: DefaultOfflineDebounce,
		offlineTimers:   make(map[string]*time.Timer),
		cleanupTicker:   time.NewTicker(cleanupInterval),
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if err := sub.Subscribe(ctx, topics.ChatClientRegister, svc.handleRegister); err != nil {
		svc.logger.Error("failed to subscribe to register events", "error", err)
	}
	if err := sub.Subscribe(ctx, topics.ClientDisconnected, svc.handleDisconnected); err != nil {
		svc.logger.Error("failed to subscribe to disconnect events", "error", err)
	}

	go svc.runCleanup()

	svc.logger.Info("Roster service initialized")
	return svc
}

func (s *Service) handleRegister(ctx context.Context, msg pubsub.Message) error {
	name := msg.Sender
	connID := msg.Metadata[topics.MetaConnectionID]
	if name == "" || connID == "" {
		s.logger.Warn("Ignoring register event without name or connection", "name", name, "connID", connID)
		return nil
	}
	s.add(name, connID)
	return nil
}

func (s *Service) handleDisconnected(ctx context.Context, msg pubsub.Message) error {
	connID := msg.Metadata[topics.MetaConnectionID]
	if connID == "" {
		return nil
	}
	s.remove(connID)
	return nil
}

func (s *Service) add(name, connID string) {
	s.mu.Lock()

	// A reconnect inside the debounce window keeps the user online.
	if timer, ok := s.offlineTimers[name]; ok {
		timer.Stop()
		delete(s.offlineTimers, name)
	}

	_, wasOnline := s.connsByName[name]
	s.byConn[connID] = registration{name: name, seen: time.Now().UTC()}
	if s.connsByName[name] == nil {
		s.connsByName[name] = make(map[string]struct{})
	}
	s.connsByName[name][connID] = struct{}{}

	names := s.namesLocked()
	s.mu.Unlock()

	if !wasOnline {
		s.logger.Info("User registered", "name", name, "connID", connID)
	}
	s.publishSnapshot(names)
}

func (s *Service) remove(connID string) {
	s.mu.Lock()

	reg, ok := s.byConn[connID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.byConn, connID)
	conns := s.connsByName[reg.name]
	delete(conns, connID)

	if len(conns) > 0 {
		s.mu.Unlock()
		return
	}

	if s.offlineDebounce == 0 {
		delete(s.connsByName, reg.name)
		names := s.namesLocked()
		s.mu.Unlock()
		s.logger.Info("User went offline", "name", reg.name)
		s.publishSnapshot(names)
		return
	}

	// Last connection gone: hold the roster entry for the debounce
	// window in case the user is just reloading the page.
	if timer, ok := s.offlineTimers[reg.name]; ok {
		timer.Stop()
	}
	s.offlineTimers[reg.name] = time.AfterFunc(s.offlineDebounce, func() {
		s.finishOffline(reg.name)
	})
	s.mu.Unlock()
}

func (s *Service) finishOffline(name string) {
	s.mu.Lock()
	delete(s.offlineTimers, name)

	if len(s.connsByName[name]) > 0 {
		// Reconnected during the debounce window.
		s.mu.Unlock()
		return
	}
	delete(s.connsByName, name)
	names := s.namesLocked()
	s.mu.Unlock()

	s.logger.Info("User went offline after debounce", "name", name)
	s.publishSnapshot(names)
}

// Names returns the current roster, sorted.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

func (s *Service) namesLocked() []string {
	names := make([]string, 0, len(s.connsByName))
	for name, conns := range s.connsByName {
		if len(conns) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Service) publishSnapshot(names []string) {
	payload, err := json.Marshal(Snapshot{Names: names})
	if err != nil {
		s.logger.Error("Failed to marshal roster snapshot", "error", err)
		return
	}
	msg := pubsub.Message{
		Topic:   topics.RosterSnapshot,
		Payload: payload,
	}
	if err := s.publisher.Publish(context.Background(), msg); err != nil {
		s.logger.Error("Failed to publish roster snapshot", "error", err)
		return
	}
	s.logger.Debug("Published roster snapshot", "count", len(names))
}

func (s *Service) runCleanup() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanupStale()
		case <-s.stopCleanup:
			s.cleanupTicker.Stop()
			return
		}
	}
}

func (s *Service) cleanupStale() {
	s.mu.Lock()

	now := time.Now().UTC()
	threshold := now.Add(-s.staleThreshold)
	removed := 0
	for connID, reg := range s.byConn {
		if s.isLive != nil && s.isLive(connID) {
			// Still attached. Refresh so a later detach without a
			// disconnect event gets the full threshold before expiry.
			reg.seen = now
			s.byConn[connID] = reg
			continue
		}
		if reg.seen.Before(threshold) {
			delete(s.byConn, connID)
			delete(s.connsByName[reg.name], connID)
			if len(s.connsByName[reg.name]) == 0 {
				delete(s.connsByName, reg.name)
			}
			removed++
		}
	}
	names := s.namesLocked()
	s.mu.Unlock()

	if removed == 0 {
		return
	}
	s.logger.Info("Cleaned up stale registrations", "removed", removed)
	s.publishSnapshot(names)
}

// Shutdown stops the background cleanup pass.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}
