package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenResponse mirrors the Graph API OAuth token payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SendMessageResponse mirrors the /{phone_number_id}/messages payload.
type SendMessageResponse struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []ContactMapping `json:"contacts"`
	Messages         []MessageID      `json:"messages"`
}

type ContactMapping struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type MessageID struct {
	ID string `json:"id"`
}

// GraphError mirrors a Graph API error envelope.
type GraphError struct {
	Error GraphErrorDetail `json:"error"`
}

type GraphErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FbtraceID string `json:"fbtrace_id"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	SimulatorID string    `json:"simulator_id"`
	Timestamp   time.Time `json:"timestamp"`
	SuccessRate float64   `json:"success_rate"`
}

// MockGraph simulates the Meta Graph API for local development: OAuth token
// exchange, webhook subscriptions, phone registration and message sends.
type MockGraph struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	simulatorID string
	rng         *rand.Rand
}

func NewMockGraph(successRate float64, minDelay, maxDelay time.Duration) *MockGraph {
	return &MockGraph{
		successRate: successRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		simulatorID: "MOCK_GRAPH_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockGraph) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockGraph) shouldSucceed() bool {
	return m.rng.Float64() < m.successRate
}

func (m *MockGraph) newWamid() string {
	return "wamid." + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

func graphError(code int, message string) GraphError {
	return GraphError{
		Error: GraphErrorDetail{
			Message:   message,
			Type:      "OAuthException",
			Code:      code,
			FbtraceID: uuid.New().String()[:12],
		},
	}
}

// Handler struct holds the mock graph and routes
type Handler struct {
	graph *MockGraph
}

func NewHandler(graph *MockGraph) *Handler {
	return &Handler{graph: graph}
}

// ExchangeToken handles POST /oauth/access_token for both authorization-code
// and refresh-token grants.
func (h *Handler) ExchangeToken(c *gin.Context) {
	clientID := c.PostForm("client_id")
	clientSecret := c.PostForm("client_secret")
	code := c.PostForm("code")
	refreshToken := c.PostForm("refresh_token")

	if clientID == "" || clientSecret == "" {
		c.JSON(http.StatusBadRequest, graphError(101, "Missing client_id or client_secret"))
		return
	}
	if code == "" && refreshToken == "" {
		c.JSON(http.StatusBadRequest, graphError(100, "Missing authorization code"))
		return
	}

	log.Info().
		Str("client_id", clientID).
		Bool("refresh", refreshToken != "").
		Msg("Issuing access token")

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  "EAAG" + uuid.New().String(),
		RefreshToken: "EAAR" + uuid.New().String(),
		TokenType:    "bearer",
		ExpiresIn:    int64((60 * 24 * time.Hour).Seconds()),
	})
}

// Subscribe handles POST /{waba_id}/subscribed_apps
func (h *Handler) Subscribe(c *gin.Context) {
	if !h.requireBearer(c) {
		return
	}

	log.Info().Str("waba_id", c.Param("id")).Msg("App subscribed to WABA webhooks")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Unsubscribe handles DELETE /{waba_id}/subscribed_apps
func (h *Handler) Unsubscribe(c *gin.Context) {
	if !h.requireBearer(c) {
		return
	}

	log.Info().Str("waba_id", c.Param("id")).Msg("App unsubscribed from WABA webhooks")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RegisterPhone handles POST /{phone_number_id}/register
func (h *Handler) RegisterPhone(c *gin.Context) {
	if !h.requireBearer(c) {
		return
	}

	var req struct {
		MessagingProduct string `json:"messaging_product"`
		Pin              string `json:"pin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Pin) != 6 {
		c.JSON(http.StatusBadRequest, graphError(131009, "Parameter value is not valid: pin"))
		return
	}

	log.Info().Str("phone_number_id", c.Param("id")).Msg("Phone number registered")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendMessage handles POST /{phone_number_id}/messages
func (h *Handler) SendMessage(c *gin.Context) {
	if !h.requireBearer(c) {
		return
	}

	var req struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to"`
		Type             string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" {
		c.JSON(http.StatusBadRequest, graphError(100, "Invalid parameter: to"))
		return
	}

	// Simulate upstream latency
	time.Sleep(h.graph.randomDelay())

	if !h.graph.shouldSucceed() {
		log.Warn().
			Str("phone_number_id", c.Param("id")).
			Str("to", req.To).
			Msg("Simulated send failure")
		c.JSON(http.StatusInternalServerError, graphError(131016, "Service temporarily unavailable"))
		return
	}

	wamid := h.graph.newWamid()
	log.Info().
		Str("phone_number_id", c.Param("id")).
		Str("to", req.To).
		Str("wamid", wamid).
		Msg("Message accepted")

	c.JSON(http.StatusOK, SendMessageResponse{
		MessagingProduct: "whatsapp",
		Contacts:         []ContactMapping{{Input: req.To, WaID: req.To}},
		Messages:         []MessageID{{ID: wamid}},
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		SimulatorID: h.graph.simulatorID,
		Timestamp:   time.Now(),
		SuccessRate: h.graph.successRate,
	})
}

// UpdateConfig allows changing simulator configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		SuccessRate *float64 `json:"success_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.SuccessRate != nil {
		if *config.SuccessRate >= 0 && *config.SuccessRate <= 1.0 {
			h.graph.successRate = *config.SuccessRate
			log.Info().Float64("rate", *config.SuccessRate).Msg("Updated success rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"success_rate": h.graph.successRate,
	})
}

func (h *Handler) requireBearer(c *gin.Context) bool {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= len("Bearer ") {
		c.JSON(http.StatusUnauthorized, graphError(190, "Invalid OAuth access token"))
		return false
	}
	return true
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// Graph API surface, same shapes the gateway client calls
	router.POST("/oauth/access_token", handler.ExchangeToken)
	router.POST("/:id/subscribed_apps", handler.Subscribe)
	router.DELETE("/:id/subscribed_apps", handler.Unsubscribe)
	router.POST("/:id/register", handler.RegisterPhone)
	router.POST("/:id/messages", handler.SendMessage)

	router.GET("/health", handler.HealthCheck)
	router.PUT("/config", handler.UpdateConfig)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	successRate := getEnvFloat("SUCCESS_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Graph API")

	// Create mock graph
	graph := NewMockGraph(successRate, minDelay, maxDelay)
	handler := NewHandler(graph)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
