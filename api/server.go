// Package api exposes the inbound HTTP surface: a message endpoint for chat
// platform adapters, the OAuth callback and a health check.
package api

import (
	"context"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	uuid "github.com/google/uuid"
	zap "go.uber.org/zap"

	commands "github.com/schedbot/schedbot/commands"
	google "github.com/schedbot/schedbot/google"
	session "github.com/schedbot/schedbot/session"
)

// Messenger handles one conversational message
type Messenger interface {
	HandleMessage(ctx context.Context, userID, text string) (string, error)
}

// MessageRequest is one inbound platform event
type MessageRequest struct {
	UserID    string     `json:"user_id" binding:"required"`
	Text      string     `json:"text" binding:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// MessageResponse carries the reply text back to the platform adapter
type MessageResponse struct {
	RequestID string `json:"request_id"`
	Reply     string `json:"reply"`
}

// Options tune the API surface
type Options struct {
	// RequireConnection rejects conversational messages from users who have
	// not linked a calendar. Commands always pass.
	RequireConnection bool

	// MaxRequestSize caps the request body in bytes; 0 means no limit
	MaxRequestSize int64
}

// Server wires the HTTP routes to the agent and command dispatcher
type Server struct {
	logger   *zap.Logger
	agent    Messenger
	commands *commands.Dispatcher
	auth     google.Authorizer
	store    session.Store
	opts     Options
}

// NewServer creates the API server
func NewServer(logger *zap.Logger, agent Messenger, dispatcher *commands.Dispatcher, auth google.Authorizer, store session.Store, opts Options) *Server {
	return &Server{
		logger:   logger,
		agent:    agent,
		commands: dispatcher,
		auth:     auth,
		store:    store,
		opts:     opts,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if s.opts.MaxRequestSize > 0 {
		router.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxRequestSize)
			c.Next()
		})
	}

	router.GET("/health", s.handleHealth)
	router.GET("/oauth/callback", s.handleOAuthCallback)

	v1 := router.Group("/v1")
	v1.POST("/messages", s.handleMessage)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleMessage(c *gin.Context) {
	requestID := uuid.New().String()

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("rejected malformed message",
			zap.String("component", "api"),
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and text are required"})
		return
	}

	s.logger.Info("received message",
		zap.String("component", "api"),
		zap.String("request_id", requestID),
		zap.String("user_id", req.UserID))

	var (
		reply string
		err   error
	)
	switch {
	case commands.IsCommand(req.Text):
		reply, err = s.commands.Handle(c.Request.Context(), req.UserID, req.Text)
	case s.opts.RequireConnection && !s.isConnected(c.Request.Context(), req.UserID):
		reply = "Link your Google Calendar first with /connect."
	default:
		reply, err = s.agent.HandleMessage(c.Request.Context(), req.UserID, req.Text)
	}
	if err != nil {
		s.logger.Error("message handling failed",
			zap.String("component", "api"),
			zap.String("request_id", requestID),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{RequestID: requestID, Reply: reply})
}

func (s *Server) isConnected(ctx context.Context, userID string) bool {
	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return false
	}
	return prefs.Connected
}

// handleOAuthCallback finishes the flow started by /connect. The state
// parameter carries the user ID that began the flow.
func (s *Server) handleOAuthCallback(c *gin.Context) {
	userID := c.Query("state")
	code := c.Query("code")
	if userID == "" || code == "" {
		c.String(http.StatusBadRequest, "missing state or code")
		return
	}

	if err := s.auth.CompleteAuth(c.Request.Context(), userID, code); err != nil {
		s.logger.Error("oauth exchange failed",
			zap.String("component", "api"),
			zap.String("user_id", userID),
			zap.Error(err))
		c.String(http.StatusBadGateway, "could not complete authorization, please try /connect again")
		return
	}

	prefs, err := s.store.Preferences(c.Request.Context(), userID)
	if err == nil {
		prefs.Connected = true
		err = s.store.SetPreferences(c.Request.Context(), userID, prefs)
	}
	if err != nil {
		c.String(http.StatusInternalServerError, "authorization succeeded but saving it failed")
		return
	}

	c.String(http.StatusOK, "Calendar connected. You can go back to the chat.")
}
