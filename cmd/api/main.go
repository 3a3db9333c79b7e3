package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/school-system/exam-results/internal/config"
	"github.com/school-system/exam-results/internal/database"
	"github.com/school-system/exam-results/internal/handlers"
	"github.com/school-system/exam-results/internal/logging"
	"github.com/school-system/exam-results/internal/metrics"
	"github.com/school-system/exam-results/internal/middleware"
	"github.com/school-system/exam-results/internal/services"
)

// @title Exam Results API
// @version 1.0
// @description Exam result computation, ranking and bulk marks import
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey SchoolID
// @in header
// @name X-School-ID
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if len(os.Args) > 1 {
		if err := handleCommand(cfg, os.Args[1], os.Args[2:]); err != nil {
			slog.Error("command failed", "command", os.Args[1], "error", err)
			os.Exit(1)
		}
		return
	}

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	r := setupRouter(cfg, db, m)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	slog.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	if err := r.Run(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func setupRouter(cfg *config.Config, db *gorm.DB, m *metrics.Metrics) *gin.Engine {
	if cfg.Server.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(m))
	r.Use(cors(cfg.CORS.Origins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "exam-results-api"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	store := database.NewStore(db)
	audit := services.NewAuditService(store)
	results := services.NewResultService(store, services.ResultOptions{
		PassThreshold: cfg.Results.PassThreshold,
		RankCutoff:    cfg.Results.RankCutoff,
	}, m, audit)
	imports := services.NewImportService(store, audit, m, cfg.Import.HeaderSearchRows)

	r.MaxMultipartMemory = cfg.Import.MaxFileSize()

	v1 := r.Group("/api/v1")
	v1.Use(middleware.TenantMiddleware())
	handlers.New(results, imports, audit, cfg.Import.MaxFileSize()).Register(v1)

	return r
}

func cors(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-School-ID, X-Actor, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Trace-ID, Content-Disposition")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
