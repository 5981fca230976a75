package google

import (
	"context"
	"fmt"
	"sync"

	zap "go.uber.org/zap"
	oauth2 "golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

// Authorizer manages per-user calendar authorization. The agent never sees
// tokens; it only asks for a TokenSource when it needs calendar access.
type Authorizer interface {
	// BeginAuth starts the OAuth flow and returns the URL the user must visit
	BeginAuth(userID string) (string, error)
	// CompleteAuth exchanges the callback code for a token
	CompleteAuth(ctx context.Context, userID, code string) error
	// TokenSource returns a live token source for a connected user
	TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error)
	// Revoke forgets the user's credentials
	Revoke(userID string) error
}

// OAuthAuthorizer implements Authorizer with the standard three-legged flow,
// holding tokens in memory
type OAuthAuthorizer struct {
	cfg    *oauth2.Config
	logger *zap.Logger

	mu     sync.Mutex
	tokens map[string]*oauth2.Token
}

// NewOAuthAuthorizer builds an authorizer for the Google calendar scope
func NewOAuthAuthorizer(clientID, clientSecret, redirectURL string, logger *zap.Logger) (*OAuthAuthorizer, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("oauth client credentials are required")
	}
	return &OAuthAuthorizer{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     oauth2google.Endpoint,
		},
		logger: logger,
		tokens: make(map[string]*oauth2.Token),
	}, nil
}

func (a *OAuthAuthorizer) BeginAuth(userID string) (string, error) {
	// the user ID doubles as the state parameter so the callback can route
	// the code back to the right user
	url := a.cfg.AuthCodeURL(userID, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	a.logger.Info("started oauth flow",
		zap.String("component", "authorizer"),
		zap.String("user_id", userID))
	return url, nil
}

func (a *OAuthAuthorizer) CompleteAuth(ctx context.Context, userID, code string) error {
	token, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return &BackendError{Op: "oauthExchange", Kind: BackendAuth, Err: err}
	}

	a.mu.Lock()
	a.tokens[userID] = token
	a.mu.Unlock()

	a.logger.Info("completed oauth flow",
		zap.String("component", "authorizer"),
		zap.String("user_id", userID))
	return nil
}

func (a *OAuthAuthorizer) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	a.mu.Lock()
	token, ok := a.tokens[userID]
	a.mu.Unlock()
	if !ok {
		return nil, &BackendError{Op: "tokenSource", Kind: BackendAuth, Err: fmt.Errorf("user %s is not connected", userID)}
	}
	return a.cfg.TokenSource(ctx, token), nil
}

func (a *OAuthAuthorizer) Revoke(userID string) error {
	a.mu.Lock()
	delete(a.tokens, userID)
	a.mu.Unlock()

	a.logger.Info("revoked credentials",
		zap.String("component", "authorizer"),
		zap.String("user_id", userID))
	return nil
}
