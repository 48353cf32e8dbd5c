// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oakledger/claimflow/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config            ServerConfig
	httpServer        *http.Server
	router            *gin.Engine
	claimService      service.ClaimService
	decisionService   service.DecisionService
	complianceService service.ComplianceService
	ruleService       service.RuleService
	policyService     service.PolicyService
	voucherService    service.VoucherService
	logger            Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	claimService service.ClaimService,
	decisionService service.DecisionService,
	complianceService service.ComplianceService,
	ruleService service.RuleService,
	policyService service.PolicyService,
	voucherService service.VoucherService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:            config,
		router:            router,
		claimService:      claimService,
		decisionService:   decisionService,
		complianceService: complianceService,
		ruleService:       ruleService,
		policyService:     policyService,
		voucherService:    voucherService,
		logger:            logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.claimService, s.decisionService, s.complianceService, s.ruleService, s.policyService, s.voucherService, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api")
	{
		// Claims
		api.POST("/claims", handlers.CreateClaim)
		api.GET("/claims", handlers.ListClaims)
		api.GET("/claims/:id", handlers.GetClaim)
		api.DELETE("/claims/:id", handlers.DeleteClaim)
		api.POST("/claims/:id/items", handlers.AddLineItem)
		api.POST("/claims/:id/submit", handlers.SubmitClaim)
		api.POST("/claims/:id/reedit", handlers.ReEditClaim)
		api.GET("/claims/:id/history", handlers.ClaimHistory)
		api.GET("/claims/:id/alerts", handlers.ClaimAlerts)
		api.POST("/claims/:id/voucher", handlers.IssueVoucher)
		api.POST("/claims/:id/settle", handlers.SettleClaim)

		// Approval chain
		api.GET("/claims/:id/chain", handlers.GetChain)
		api.GET("/claims/:id/chain/can-act", handlers.CanAct)
		api.POST("/claims/:id/decision", handlers.RecordDecision)
		api.POST("/claims/:id/skip", handlers.SkipStep)

		// Administration
		api.POST("/rules", handlers.CreateRule)
		api.GET("/rules", handlers.ListRules)
		api.GET("/rules/:id", handlers.GetRule)
		api.PUT("/rules/:id", handlers.UpdateRule)
		api.DELETE("/rules/:id", handlers.DeleteRule)
		api.POST("/rules/:id/default", handlers.SetDefaultRule)
		api.POST("/rules/:id/active", handlers.SetRuleActive)

		api.POST("/policies", handlers.CreatePolicy)
		api.GET("/policies", handlers.ListPolicies)
		api.GET("/policies/:id", handlers.GetPolicy)
		api.PUT("/policies/:id", handlers.UpdatePolicy)
		api.DELETE("/policies/:id", handlers.DeletePolicy)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
