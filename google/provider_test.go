package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zap "go.uber.org/zap"
	oauth2 "golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
)

// stubService satisfies CalendarService for identity checks only
type stubService struct{ name string }

func (s *stubService) ListEvents(context.Context, string, time.Time, time.Time, int64) ([]*calendar.Event, error) {
	return nil, nil
}

func (s *stubService) SearchEvents(context.Context, string, string, time.Time, time.Time, int64) ([]*calendar.Event, error) {
	return nil, nil
}

func (s *stubService) CreateEvent(context.Context, string, *calendar.Event) (*calendar.Event, error) {
	return nil, nil
}

func (s *stubService) UpdateEvent(context.Context, string, string, *calendar.Event) (*calendar.Event, error) {
	return nil, nil
}

func (s *stubService) DeleteEvent(context.Context, string, string) error { return nil }

func (s *stubService) GetEvent(context.Context, string, string) (*calendar.Event, error) {
	return nil, nil
}

// stubAuth hands out token sources only for connected users
type stubAuth struct {
	connected map[string]bool
}

func (a *stubAuth) BeginAuth(string) (string, error) { return "", nil }

func (a *stubAuth) CompleteAuth(context.Context, string, string) error { return nil }

func (a *stubAuth) Revoke(string) error { return nil }

func (a *stubAuth) TokenSource(_ context.Context, userID string) (oauth2.TokenSource, error) {
	if !a.connected[userID] {
		return nil, &BackendError{Op: "tokenSource", Kind: BackendAuth}
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-" + userID}), nil
}

func TestStaticServiceProvider(t *testing.T) {
	shared := &stubService{name: "shared"}
	p := StaticServiceProvider{Service: shared}

	svc, err := p.ServiceFor(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Same(t, shared, svc)
}

func TestUserServiceProvider_ConnectedUserGetsOwnService(t *testing.T) {
	shared := &stubService{name: "shared"}
	auth := &stubAuth{connected: map[string]bool{"alice": true}}
	p := NewUserServiceProvider(auth, shared, zap.NewNop())

	svc, err := p.ServiceFor(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.NotSame(t, shared, svc)
}

func TestUserServiceProvider_UnconnectedUserFallsBack(t *testing.T) {
	shared := &stubService{name: "shared"}
	auth := &stubAuth{connected: map[string]bool{}}
	p := NewUserServiceProvider(auth, shared, zap.NewNop())

	svc, err := p.ServiceFor(context.Background(), "bob")
	require.NoError(t, err)
	assert.Same(t, shared, svc)
}

func TestUserServiceProvider_NoFallbackSurfacesAuthError(t *testing.T) {
	auth := &stubAuth{connected: map[string]bool{}}
	p := NewUserServiceProvider(auth, nil, zap.NewNop())

	_, err := p.ServiceFor(context.Background(), "bob")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}
