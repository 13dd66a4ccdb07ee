package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"marketing-insights-backend/config"
	_ "marketing-insights-backend/docs"
	"marketing-insights-backend/internal/agent"
	"marketing-insights-backend/internal/controller"
	"marketing-insights-backend/internal/filestate"
	"marketing-insights-backend/internal/orchestrator"
	"marketing-insights-backend/internal/scheduler"
	"marketing-insights-backend/internal/service"
	"marketing-insights-backend/internal/store"
)

// @title           Marketing Insights API
// @version         1.0
// @description     A natural language question-answering API over Google Analytics 4 and SEO crawl data. Ask questions in plain English and get narrated answers with trends, alerts, and confidence levels.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support Team
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         insights
// @tag.description  Natural language analytics and SEO queries

// @tag.name         health
// @tag.description  API health check operations

func main() {
	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			NewSnapshotStateManager,
			store.NewInMemoryHistoryStore,
			service.NewLLMService,
			service.NewGA4Service,
			service.NewSheetsService,
			agent.NewAnalyticsAgent,
			agent.NewSEOAgent,
			orchestrator.NewIntentDetector,
			orchestrator.NewOrchestrator,
			controller.NewQueryController,
			controller.NewHealthController,
		),
		fx.Invoke(
			RegisterAPIRoutes,
			RegisterScheduler,
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Add your frontend URLs
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	queryController *controller.QueryController,
	healthController *controller.HealthController,
) {
	if queryController != nil {
		controller.RegisterQueryRoutes(router, queryController)
	} else {
		log.Warn().Msg("QueryController not provided, skipping insights API routes.")
	}

	if healthController != nil {
		controller.RegisterHealthRoutes(router, healthController)
	} else {
		log.Warn().Msg("HealthController not provided")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

func NewSnapshotStateManager(cfg *config.Config) filestate.Manager {
	return filestate.NewManager(cfg.Sheets.SnapshotStatePath)
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, sheetsSvc service.SheetsService) {
	scheduler.NewScheduler(lc, cfg, sheetsSvc)
}
