package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"relevamiento/internal/api"
	"relevamiento/internal/app"
	"relevamiento/internal/config"
)

func main() {
	cfg := config.Load()
	log := app.Logger(cfg)
	for _, r := range cfg.IgnoredRetailers {
		log.Warn().Str("retailer", r).Msg("unknown retailer ignored")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Open(ctx, cfg, log, false)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer env.Close()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(os.Getenv("GIN_MODE"))
	}
	r := gin.New()
	r.Use(gin.Recovery(), cors.Default())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(env.Metrics.Handler()))
	api.NewHandler(env.Catalog(), env.Scanner, log).Register(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server ListenAndServe")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server Shutdown")
	}
	log.Info().Msg("graceful shutdown complete")
}
