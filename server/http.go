// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/go-taskboard/taskboard"
)

// TokenSource resolves caller credentials and manages session tokens. The
// auth package provides the production implementation.
type TokenSource interface {
	// Resolve maps an opaque credential string to an identity.
	Resolve(initData string) (taskboard.Identity, error)

	// Issue creates a session token for a resolved identity.
	Issue(ident taskboard.Identity) (string, error)

	// Recover extracts the user id from a previously issued token.
	Recover(token string) (int64, error)
}

// Config holds construction parameters for [Server].
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	Engine *Engine
	Auth   TokenSource
	Logger *slog.Logger
}

// Server exposes the engine over HTTP, including the SSE event stream.
type Server struct {
	addr    string
	engine  *Engine
	auth    TokenSource
	logger  *slog.Logger
	router  *gin.Engine
	httpSrv *http.Server
}

// New creates a server with all routes registered.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:   cfg.Addr,
		engine: cfg.Engine,
		auth:   cfg.Auth,
		logger: logger,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving in the background. Use Stop for a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	s.logger.InfoContext(ctx, "starting taskboard server", "address", s.addr)

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "server error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "Taskboard API",
			"ok":        true,
			"endpoints": []string{"/health", "/auth/telegram", "/tasks", "/events"},
		})
	})

	r.POST("/auth/telegram", s.handleAuth)
	r.GET("/tasks", s.handleListTasks)
	r.GET("/tasks/:id", s.handleGetTask)
	r.GET("/events", s.handleEvents)

	authed := r.Group("/", s.requireToken)
	{
		authed.POST("/tasks", s.handleCreateTask)
		authed.POST("/tasks/:id/take", s.transition(s.engine.Take))
		authed.POST("/tasks/:id/complete", s.handleCompleteTask)
		authed.POST("/tasks/:id/confirm", s.transition(s.engine.Confirm))
		authed.POST("/tasks/:id/reject", s.transition(s.engine.Reject))
		authed.GET("/balance", s.handleGetBalance)
		authed.POST("/balance/add", s.handleAddBalance)
		authed.POST("/balance/withdraw", s.handleWithdraw)
		authed.GET("/profile", s.handleGetProfile)
		authed.POST("/profile", s.handleUpdateProfile)
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Token")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requireToken resolves the session token into an actor identity. The token
// is accepted from the X-Token header, the token query parameter, or a form
// field, in that order.
func (s *Server) requireToken(c *gin.Context) {
	token := c.GetHeader("X-Token")
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		token = c.PostForm("token")
	}
	if token == "" {
		s.fail(c, taskboard.ErrTokenRequired)
		c.Abort()
		return
	}

	userID, err := s.auth.Recover(token)
	if err != nil {
		s.fail(c, err)
		c.Abort()
		return
	}

	c.Set("actorID", userID)
	c.Next()
}

func (s *Server) actor(c *gin.Context) taskboard.Identity {
	return taskboard.Identity{ID: c.GetInt64("actorID")}
}

type authRequest struct {
	InitData string `json:"initData" form:"initData"`
}

func (s *Server) handleAuth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBind(&req); err != nil || req.InitData == "" {
		req.InitData = c.Query("initData")
	}
	if req.InitData == "" {
		s.fail(c, taskboard.NewError(taskboard.KindInvalidInput, "initData required"))
		return
	}

	ident, err := s.auth.Resolve(req.InitData)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.engine.Touch(c.Request.Context(), ident)

	token, err := s.auth.Issue(ident)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := taskboard.TaskFilter{Category: c.Query("category")}
	if v := c.Query("price_min"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.fail(c, taskboard.NewError(taskboard.KindInvalidInput, "price_min must be an integer"))
			return
		}
		filter.PriceMin = &n
	}
	if v := c.Query("price_max"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.fail(c, taskboard.NewError(taskboard.KindInvalidInput, "price_max must be an integer"))
			return
		}
		filter.PriceMax = &n
	}

	items := s.engine.List(c.Request.Context(), filter, taskboard.SortKey(c.Query("sort")))
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, taskboard.ErrTaskNotFound)
		return
	}
	view, err := s.engine.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in taskboard.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, taskboard.NewError(taskboard.KindInvalidInput, "invalid payload"))
		return
	}
	view, err := s.engine.Create(c.Request.Context(), s.actor(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// transition adapts the single-shape engine transitions (take, confirm,
// reject) into handlers.
func (s *Server) transition(op func(context.Context, int64, taskboard.Identity) (*taskboard.TaskView, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			s.fail(c, taskboard.ErrTaskNotFound)
			return
		}
		view, err := op(c.Request.Context(), id, s.actor(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

type completeRequest struct {
	ResultText string `json:"result_text"`
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.fail(c, taskboard.ErrTaskNotFound)
		return
	}
	var req completeRequest
	_ = c.ShouldBindJSON(&req)

	view, err := s.engine.Complete(c.Request.Context(), id, s.actor(c), req.ResultText)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetBalance(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.BalanceOf(c.Request.Context(), s.actor(c)))
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleAddBalance(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, taskboard.NewError(taskboard.KindInvalidInput, "invalid payload"))
		return
	}
	snapshot, err := s.engine.Deposit(c.Request.Context(), s.actor(c), req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req amountRequest
	_ = c.ShouldBindJSON(&req)
	snapshot, err := s.engine.Withdraw(c.Request.Context(), s.actor(c), req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Profile(c.Request.Context(), s.actor(c)))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var upd taskboard.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		s.fail(c, taskboard.NewError(taskboard.KindInvalidInput, "invalid payload"))
		return
	}
	c.JSON(http.StatusOK, s.engine.UpdateProfile(c.Request.Context(), s.actor(c), upd))
}

// fail writes a structured error response. Invariant violations are logged
// loudly; everything else is the caller's problem.
func (s *Server) fail(c *gin.Context, err error) {
	kind := taskboard.KindOf(err)
	if kind == taskboard.KindInvariant {
		s.logger.Error("internal fault", "path", c.Request.URL.Path, "error", err)
	}

	message := err.Error()
	var te *taskboard.Error
	if errors.As(err, &te) {
		message = te.Message
	}
	// "detail" is what UI clients read; "kind" lets API clients rebuild the
	// structured error despite conflict and invalid-input sharing a status.
	c.JSON(httpStatus(kind), gin.H{"detail": message, "kind": string(kind)})
}

func httpStatus(kind taskboard.Kind) int {
	switch kind {
	case taskboard.KindInvalidInput, taskboard.KindConflict, taskboard.KindInsufficientFunds:
		return http.StatusBadRequest
	case taskboard.KindUnauthorized:
		return http.StatusUnauthorized
	case taskboard.KindForbidden:
		return http.StatusForbidden
	case taskboard.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
