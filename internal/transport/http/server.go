package http

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"kbqa/internal/bootstrap"
	mysqlClient "kbqa/internal/platform/mysql"
	redisClient "kbqa/internal/platform/redis"
	"kbqa/internal/transport/http/handler"
	"kbqa/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	if mode := app.Config.App.GinMode; mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()
	router.Use(
		middleware.Recovery(app.Logger),
		middleware.RequestLogger(app.Logger, app.Metrics),
		middleware.CORS(),
	)
	// Multipart bodies beyond this spill to temp files.
	router.MaxMultipartMemory = 8 << 20

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app))
	ragHandler := handler.NewRAGHandler(app.RAG, app.Config.MaxUploadBytes(), app.Logger)

	router.GET("/", ragHandler.Root)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	router.POST("/upload", ragHandler.Upload)
	router.POST("/qa", ragHandler.Ask)
	router.GET("/files", ragHandler.ListFiles)
	router.GET("/sessions/:id/history", ragHandler.History)

	return router
}

func healthChecks(app *bootstrap.App) map[string]handler.Checker {
	checks := map[string]handler.Checker{
		"index_dir": func(context.Context) error {
			info, err := os.Stat(app.Config.RAG.IndexDir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", app.Config.RAG.IndexDir)
			}
			return nil
		},
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx, app.Redis)
		}
	}
	if app.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			return mysqlClient.Ping(ctx, app.MySQL)
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return fmt.Errorf("connection closed")
			}
			return nil
		}
	}
	return checks
}
