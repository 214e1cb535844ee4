package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"support-chat-service/internal/config"
	"support-chat-service/internal/db"
	"support-chat-service/internal/handlers"
	"support-chat-service/internal/middleware"
	"support-chat-service/internal/observability"
	"support-chat-service/internal/rabbitmq"
	"support-chat-service/internal/repositories"
	"support-chat-service/internal/telemetry"
	"support-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.OTLPEndpoint, "support-chat-service", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	if publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(publisher)
		defer publisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	emitter := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, "support-chat-service", cfg.Environment)

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()
	relay := ws.NewRelay(hub, roomRepo, messageRepo, emitter)
	wsHandler := ws.NewSupportWebSocketHandler(hub, relay)

	roomHandler := handlers.NewRoomHandler(roomRepo, messageRepo, emitter)
	uploadHandler := handlers.NewUploadHandler(cfg.UploadDir)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	support := router.Group("/support")
	support.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "This is a test endpoint of port %s", cfg.Port)
	})
	support.GET("/fetchRoom/:id", roomHandler.FetchRoom)
	support.GET("/fetchRoomCsr/:id", roomHandler.FetchRoomCsr)
	support.POST("/createRoom", roomHandler.CreateRoom)
	support.GET("/chats/:id", roomHandler.GetChats)
	support.GET("/fetchRooms", roomHandler.FetchRooms)
	support.POST("/uploadImage", uploadHandler.UploadImage)
	support.Static("/uploads", cfg.UploadDir)
	support.GET("/ws", wsHandler.Handle)

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
