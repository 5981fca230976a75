package google

import (
	"context"

	zap "go.uber.org/zap"
)

// ServiceProvider selects the calendar backend for a user. It lets the
// toolbox work against each user's own calendar once they have linked one,
// without knowing anything about credentials.
type ServiceProvider interface {
	ServiceFor(ctx context.Context, userID string) (CalendarService, error)
}

// StaticServiceProvider always returns the same shared service, regardless
// of user. Used in demo mode and for service-account deployments.
type StaticServiceProvider struct {
	Service CalendarService
}

func (p StaticServiceProvider) ServiceFor(context.Context, string) (CalendarService, error) {
	return p.Service, nil
}

// UserServiceProvider backs each connected user with a service bound to
// their own OAuth credentials. Users who have not linked a calendar get the
// fallback service instead.
type UserServiceProvider struct {
	auth     Authorizer
	fallback CalendarService
	logger   *zap.Logger
}

// NewUserServiceProvider creates a provider over the given authorizer.
// fallback may be nil, in which case unconnected users get an auth error.
func NewUserServiceProvider(auth Authorizer, fallback CalendarService, logger *zap.Logger) *UserServiceProvider {
	return &UserServiceProvider{auth: auth, fallback: fallback, logger: logger}
}

func (p *UserServiceProvider) ServiceFor(ctx context.Context, userID string) (CalendarService, error) {
	ts, err := p.auth.TokenSource(ctx, userID)
	if err != nil {
		if IsAuthError(err) && p.fallback != nil {
			return p.fallback, nil
		}
		return nil, err
	}

	svc, err := NewCalendarServiceWithTokenSource(ctx, p.logger, ts)
	if err != nil {
		return nil, &BackendError{Op: "serviceFor", Kind: BackendFatal, Err: err}
	}
	return svc, nil
}
