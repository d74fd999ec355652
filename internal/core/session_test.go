package core

import (
	"context"
	"testing"
	"time"

	"github.com/gbroads/roadstatus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var amina = &models.Identity{ID: 7, Email: "amina@example.com", DisplayName: "Amina"}

var moderator = &models.Identity{ID: 1, Email: "desk@gbroads.pk", DisplayName: "Road Desk", IsAdmin: true}

func waitReady(t *testing.T, h *SessionHolder) SessionState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := h.WaitReady(ctx)
	require.NoError(t, err)
	return state
}

func TestNewSessionHolder(t *testing.T) {
	h := NewSessionHolder(newMockAuthClient(nil), zap.NewNop())

	state := h.State()
	assert.Equal(t, PhaseLoading, state.Phase)
	assert.False(t, state.NeedsLogin(), "a loading session must never redirect to login")
}

func TestSessionHolder_Start(t *testing.T) {
	tests := []struct {
		name              string
		identity          *models.Identity
		err               error
		expectedSignedIn  bool
		expectedNeedLogin bool
	}{
		{name: "signed in", identity: amina, expectedSignedIn: true},
		{name: "signed out", identity: nil, expectedNeedLogin: true},
		{name: "fetch failure is treated as signed out", err: errRemote, expectedNeedLogin: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newMockAuthClient(tt.identity)
			auth.err = tt.err
			h := NewSessionHolder(auth, zap.NewNop())
			defer h.Close()

			h.Start(context.Background())
			h.Start(context.Background())
			state := waitReady(t, h)

			assert.Equal(t, PhaseReady, state.Phase)
			assert.Equal(t, tt.expectedSignedIn, state.SignedIn())
			assert.Equal(t, tt.expectedNeedLogin, state.NeedsLogin())
			assert.Equal(t, 1, auth.listenerCount())
		})
	}
}

func TestSessionHolder_EventDuringInitialLoadWins(t *testing.T) {
	auth := newMockAuthClient(nil)
	auth.release = make(chan struct{})
	h := NewSessionHolder(auth, zap.NewNop())
	defer h.Close()

	h.Start(context.Background())
	auth.emit(models.AuthEventSignedIn, amina)
	assert.Equal(t, PhaseLoading, h.State().Phase)

	close(auth.release)
	state := waitReady(t, h)

	assert.Equal(t, PhaseReady, state.Phase)
	assert.Equal(t, amina, state.Identity)
}

func TestSessionHolder_EventsAfterReady(t *testing.T) {
	auth := newMockAuthClient(amina)
	h := NewSessionHolder(auth, zap.NewNop())
	defer h.Close()
	h.Start(context.Background())
	waitReady(t, h)

	var seen []SessionState
	unsubscribe := h.Subscribe(func(s SessionState) { seen = append(seen, s) })

	auth.emit(models.AuthEventSignedOut, nil)
	assert.Nil(t, h.State().Identity)
	assert.True(t, h.State().NeedsLogin())

	refreshed := &models.Identity{ID: 7, Email: "amina@example.com", DisplayName: "Amina K."}
	auth.emit(models.AuthEventTokenRefreshed, refreshed)
	assert.Equal(t, refreshed, h.State().Identity)

	unsubscribe()
	auth.emit(models.AuthEventSignedOut, nil)
	assert.Len(t, seen, 2)
}

func TestSessionHolder_SignOut(t *testing.T) {
	tests := []struct {
		name        string
		remoteErr   error
		expectError bool
	}{
		{name: "remote success"},
		{name: "remote failure still clears identity", remoteErr: errRemote, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newMockAuthClient(amina)
			auth.signOutErr = tt.remoteErr
			h := NewSessionHolder(auth, zap.NewNop())
			defer h.Close()
			h.Start(context.Background())
			require.True(t, waitReady(t, h).SignedIn())

			var sawSigningOut bool
			h.Subscribe(func(s SessionState) {
				if s.SigningOut {
					sawSigningOut = true
				}
			})

			err := h.SignOut(context.Background())

			if tt.expectError {
				assert.ErrorIs(t, err, errRemote)
			} else {
				assert.NoError(t, err)
			}
			state := h.State()
			assert.Nil(t, state.Identity)
			assert.False(t, state.SigningOut)
			assert.True(t, sawSigningOut)
			assert.Equal(t, 1, auth.signOuts)
		})
	}
}

func TestSessionHolder_Close(t *testing.T) {
	auth := newMockAuthClient(amina)
	h := NewSessionHolder(auth, zap.NewNop())
	h.Start(context.Background())
	waitReady(t, h)

	calls := 0
	h.Subscribe(func(SessionState) { calls++ })
	h.Close()
	auth.emit(models.AuthEventSignedOut, nil)

	assert.Equal(t, 0, auth.listenerCount())
	assert.Equal(t, 1, auth.unsubscribe)
	assert.Equal(t, 0, calls)
	assert.Equal(t, amina, h.State().Identity)
}

func TestSessionHolder_WaitReadyCancelled(t *testing.T) {
	auth := newMockAuthClient(amina)
	auth.release = make(chan struct{})
	defer close(auth.release)
	h := NewSessionHolder(auth, zap.NewNop())
	defer h.Close()
	h.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := h.WaitReady(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhaseLoading, state.Phase)
}
