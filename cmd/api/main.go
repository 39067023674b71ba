package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/lodgio/whatsapp-gateway/internal/config"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/handlers"
	"github.com/lodgio/whatsapp-gateway/internal/queue"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
	"github.com/lodgio/whatsapp-gateway/internal/services"
	xhttp "github.com/lodgio/whatsapp-gateway/pkg/http"
	"github.com/lodgio/whatsapp-gateway/pkg/logger"
	"github.com/lodgio/whatsapp-gateway/pkg/pg"
	"github.com/lodgio/whatsapp-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	graphClient, err := graph.NewClient(graph.Config{
		AppID:        config.Get().WhatsAppAppID,
		AppSecret:    config.Get().WhatsAppAppSecret,
		RedirectURI:  config.Get().WhatsAppRedirectURI,
		BaseURL:      config.Get().GraphBaseURL,
		AuthorizeURL: config.Get().GraphAuthorizeURL,
		Timeout:      config.Get().GraphTimeout,
	})
	if err != nil {
		logger.Error("failed creating graph client", "error", err)
		return
	}

	tenantRepo := repository.NewTenantRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// services
	clientCache := services.NewClientCache(tenantRepo)
	tenantService := services.NewTenantService(tenantRepo, graphClient, clientCache)
	conversationService := services.NewConversationService(conversationRepo, messageRepo, graphClient, clientCache)
	healthService := services.NewHealthService(db)

	// v1 handlers
	webhookHandler := handlers.NewWebhookHandler(q, config.Get().WebhookVerifyToken)
	tenantHandler := handlers.NewTenantHandler(tenantService)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterTenantRoutes(g, tenantHandler)
	handlers.RegisterConversationRoutes(g, conversationHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
