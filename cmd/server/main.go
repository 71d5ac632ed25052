package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/runeape-sats/x402-sol-member/internal/api"
	"github.com/runeape-sats/x402-sol-member/internal/config"
	"github.com/runeape-sats/x402-sol-member/internal/weather"
	"github.com/runeape-sats/x402-sol-member/logger"
	"github.com/runeape-sats/x402-sol-member/metrics"
	"github.com/runeape-sats/x402-sol-member/svm"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.LogLevel)
	rec := metrics.NewPrometheusRecorder()

	var memberMint solana.PublicKey
	if cfg.MemberToken != "" {
		memberMint = solana.MustPublicKeyFromBase58(cfg.MemberToken)
	}

	rpcClient := rpc.New(cfg.RPCURL)
	facilitator, err := svm.NewFacilitator(svm.FacilitatorConfig{
		MemberMint:      memberMint,
		MemberThreshold: cfg.MemberThreshold,
		Oracle:          svm.NewRPCBalanceOracle(rpcClient),
		Broadcaster:     svm.NewRPCBroadcaster(rpcClient),
		Ledger:          svm.NewReferenceLedger(svm.DefaultReferenceTTL),
		Logger:          log,
		Metrics:         rec,
	})
	if err != nil {
		log.Error("failed to build facilitator", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(api.RouterConfig{
		Facilitator:     facilitator,
		Weather:         weather.NewService(),
		Price:           cfg.Price,
		PayTo:           cfg.PayTo,
		Network:         cfg.Network,
		Asset:           cfg.Asset,
		MemberToken:     cfg.MemberToken,
		MemberThreshold: cfg.MemberThreshold,
		ResourceRootURL: cfg.ResourceRootURL,
		Logger:          log,
		Metrics:         rec,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("weather server starting", map[string]any{
			"port":    cfg.Port,
			"network": cfg.Network,
			"payTo":   cfg.PayTo,
			"price":   cfg.Price,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", map[string]any{"error": err.Error()})
	}
	log.Info("server exited", nil)
}
