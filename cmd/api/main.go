package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/AdityaDodda/purchase-kandhari/api/swagger" // swagger docs
	"github.com/AdityaDodda/purchase-kandhari/internal/cache"
	"github.com/AdityaDodda/purchase-kandhari/internal/config"
	"github.com/AdityaDodda/purchase-kandhari/internal/database"
	"github.com/AdityaDodda/purchase-kandhari/internal/handler"
	"github.com/AdityaDodda/purchase-kandhari/internal/mailer"
	"github.com/AdityaDodda/purchase-kandhari/internal/middleware"
	"github.com/AdityaDodda/purchase-kandhari/internal/repository"
	"github.com/AdityaDodda/purchase-kandhari/internal/service"
	"github.com/AdityaDodda/purchase-kandhari/internal/websocket"
)

// @title           Purchase Requisition API
// @version         1.0
// @description     Workflow portal for purchase requisitions: submission, approval progression, attachments and master data.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.New()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	log.Info("connected to postgres")

	redisClient, err := cache.New(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, password reset disabled")
		redisClient = nil
	}

	mail := mailer.New(cfg.SMTP)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repository -> Service -> Handler
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, wsHub)
	userService := service.NewUserService(userRepo, redisClient, mail, cfg.FrontendURL)
	requestService := service.NewRequestService(db, wsHub)
	attachmentService := service.NewAttachmentService(db, cfg.Upload)
	masterService := service.NewMasterService(db)
	dashboardService := service.NewDashboardService(db)
	escalationService := service.NewEscalationService(db, notificationService)

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	requestHandler := handler.NewRequestHandler(requestService, attachmentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	masterHandler := handler.NewMasterHandler(masterService)

	// Daily escalation sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.EscalateSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := escalationService.Sweep(ctx); err != nil {
			log.WithError(err).Error("escalation sweep failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("invalid escalation cron spec")
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	api := router.Group("/api")
	authHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	requestHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	dashboardHandler.RegisterRoutes(api)
	masterHandler.RegisterRoutes(api)

	addr := fmt.Sprintf(":%d", cfg.ServicePort)
	log.WithField("addr", addr).Info("server listening")
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
