package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"chat-sync/internal/config"
	"chat-sync/internal/db"
	"chat-sync/internal/handlers"
	"chat-sync/internal/hub"
	"chat-sync/internal/identity"
	"chat-sync/internal/middleware"
	"chat-sync/internal/observability"
	"chat-sync/internal/rabbitmq"
	"chat-sync/internal/repositories"
	"chat-sync/internal/session"
	"chat-sync/internal/telemetry"
	"chat-sync/internal/ws"
)

const serviceName = "chat-sync"

func main() {
	cfg := config.Load()

	log, err := buildLogger(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	publisher := rabbitmq.NewPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	feeds := rabbitmq.NewFeeds(rabbitmq.PublisherConnection(publisher), cfg.AMQPExchange, publisher, log)

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment, log)

	presenceHub := hub.NewPresenceHub(0, log)
	presenceHub.Start()
	defer presenceHub.Close()

	provider := identity.NewClient(cfg.AuthURL)

	messageRepo := repositories.NewMessageRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	typingRepo := repositories.NewTypingRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)
	profileRepo := repositories.NewProfileRepo(database)

	reporter := session.NewReporter(receiptRepo, log)

	chatHandler := handlers.NewChatHandler(conversationRepo, messageRepo, feeds, typingRepo, reporter, cfg.HistoryLimit)
	groupHandler := handlers.NewGroupHandler(groupRepo, groupMessageRepo, feeds, typingRepo)

	stateWS := ws.NewStateHandler(ws.StateHandlerDeps{
		Identity:      provider,
		Hub:           presenceHub,
		Profiles:      profileRepo,
		Feeds:         feeds,
		Messages:      messageRepo,
		GroupMessages: groupMessageRepo,
		Conversations: conversationRepo,
		Groups:        groupRepo,
		Typing:        typingRepo,
		Reporter:      reporter,
		Audit:         audit,
		Log:           log,
	}, session.Options{HistoryLimit: cfg.HistoryLimit})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(provider)

	router.GET("/conversations", authMiddleware, chatHandler.ListConversations)
	router.POST("/conversations/start", authMiddleware, chatHandler.StartConversation)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, chatHandler.GetConversationMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, chatHandler.PostConversationMessage)
	router.POST("/conversations/:conversation_id/typing", authMiddleware, chatHandler.SetConversationTyping)

	router.GET("/messages", authMiddleware, chatHandler.GetGlobalMessages)
	router.POST("/messages", authMiddleware, chatHandler.PostGlobalMessage)
	router.PATCH("/messages/:message_id", authMiddleware, chatHandler.EditMessage)
	router.DELETE("/messages/:message_id", authMiddleware, chatHandler.DeleteMessage)
	router.POST("/messages/:message_id/read", authMiddleware, chatHandler.MarkMessageRead)
	router.POST("/typing", authMiddleware, chatHandler.SetGlobalTyping)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id/messages", authMiddleware, groupHandler.GetGroupMessages)
	router.POST("/groups/:group_id/messages", authMiddleware, groupHandler.PostGroupMessage)
	router.DELETE("/groups/:group_id/messages/:message_id", authMiddleware, groupHandler.DeleteGroupMessage)
	router.POST("/groups/:group_id/typing", authMiddleware, groupHandler.SetGroupTyping)

	router.GET("/ws/state", stateWS.HandleGlobal)
	router.GET("/ws/conversations/:conversation_id", stateWS.HandleConversation)
	router.GET("/ws/groups/:group_id", stateWS.HandleGroup)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	log.Info("starting chat-sync",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("amqp_mode", rabbitmq.PublisherMode(publisher)))

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
