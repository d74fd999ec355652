package core

import (
	"context"
	"sync"

	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
)

// AuthClient is the part of the Remote Data Service auth API the session needs
type AuthClient interface {
	// CurrentIdentity returns the signed-in identity, or nil when signed out
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
	// OnIdentityChange registers a listener and returns its unsubscribe func
	OnIdentityChange(fn models.IdentityListener) func()
	// SignOut revokes the session remotely and clears it locally
	SignOut(ctx context.Context) error
}

// Phase is the load phase of a session
type Phase string

// Phase constants
const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// SessionState is a snapshot of the session
type SessionState struct {
	Phase      Phase
	Identity   *models.Identity
	SigningOut bool
}

// Ready reports whether the initial identity fetch has completed
func (s SessionState) Ready() bool {
	return s.Phase == PhaseReady
}

// SignedIn reports whether there is an identity
func (s SessionState) SignedIn() bool {
	return s.Identity != nil
}

// IsAdmin reports whether the identity may moderate reports
func (s SessionState) IsAdmin() bool {
	return s.Identity != nil && s.Identity.IsAdmin
}

// NeedsLogin reports whether a gated page should send the user to login.
// A session that is still loading never needs login.
func (s SessionState) NeedsLogin() bool {
	return s.Ready() && s.Identity == nil
}

// SessionHolder tracks the signed-in identity of one page
type SessionHolder struct {
	auth   AuthClient
	logger *zap.Logger

	startOnce sync.Once
	ready     chan struct{}

	mu          sync.Mutex
	state       SessionState
	eventSeen   bool
	closed      bool
	unsubscribe func()
	subscribers []sessionSubscriber
	nextID      int
}

type sessionSubscriber struct {
	id int
	fn func(SessionState)
}

// NewSessionHolder creates a session in the loading phase
func NewSessionHolder(auth AuthClient, logger *zap.Logger) *SessionHolder {
	return &SessionHolder{
		auth:   auth,
		logger: logger,
		ready:  make(chan struct{}),
		state:  SessionState{Phase: PhaseLoading},
	}
}

// Start listens for identity changes and fetches the current identity in the background.
// Calls after the first are no-ops.
func (h *SessionHolder) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		unsubscribe := h.auth.OnIdentityChange(h.onIdentityChange)
		h.mu.Lock()
		h.unsubscribe = unsubscribe
		h.mu.Unlock()

		go h.loadIdentity(ctx)
	})
}

func (h *SessionHolder) loadIdentity(ctx context.Context) {
	identity, err := h.auth.CurrentIdentity(ctx)
	if err != nil {
		h.logger.Warn("failed to load current identity", zap.Error(err))
		identity = nil
	}

	h.mu.Lock()
	if !h.eventSeen {
		h.state.Identity = identity
	}
	h.state.Phase = PhaseReady
	state, subscribers := h.state, h.snapshotSubscribers()
	h.mu.Unlock()

	close(h.ready)
	notify(subscribers, state)
}

// onIdentityChange replaces the identity, also before the initial fetch completes
func (h *SessionHolder) onIdentityChange(event models.AuthEvent, identity *models.Identity) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.eventSeen = true
	h.state.Identity = identity
	state, subscribers := h.state, h.snapshotSubscribers()
	h.mu.Unlock()

	h.logger.Debug("identity changed", zap.String("event", string(event)), zap.Bool("signed_in", identity != nil))
	notify(subscribers, state)
}

// State returns the current snapshot
func (h *SessionHolder) State() SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// WaitReady blocks until the initial identity fetch completes or ctx is done
func (h *SessionHolder) WaitReady(ctx context.Context) (SessionState, error) {
	select {
	case <-h.ready:
		return h.State(), nil
	case <-ctx.Done():
		return h.State(), ctx.Err()
	}
}

// Subscribe calls fn with every new state until the returned func is called
func (h *SessionHolder) Subscribe(fn func(SessionState)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subscribers = append(h.subscribers, sessionSubscriber{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subscribers {
			if s.id == id {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				return
			}
		}
	}
}

// SignOut signs out remotely and always clears the local identity.
// The remote error is returned for logging only.
func (h *SessionHolder) SignOut(ctx context.Context) error {
	h.mu.Lock()
	h.state.SigningOut = true
	state, subscribers := h.state, h.snapshotSubscribers()
	h.mu.Unlock()
	notify(subscribers, state)

	err := h.auth.SignOut(ctx)
	if err != nil {
		h.logger.Warn("remote sign-out failed, clearing local session", zap.Error(err))
	}

	h.mu.Lock()
	h.state.Identity = nil
	h.state.SigningOut = false
	state, subscribers = h.state, h.snapshotSubscribers()
	h.mu.Unlock()
	notify(subscribers, state)

	return err
}

// Close stops listening for identity changes and drops all subscribers
func (h *SessionHolder) Close() {
	h.mu.Lock()
	h.closed = true
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.subscribers = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (h *SessionHolder) snapshotSubscribers() []sessionSubscriber {
	if h.closed {
		return nil
	}
	out := make([]sessionSubscriber, len(h.subscribers))
	copy(out, h.subscribers)
	return out
}

func notify(subscribers []sessionSubscriber, state SessionState) {
	for _, s := range subscribers {
		s.fn(state)
	}
}
