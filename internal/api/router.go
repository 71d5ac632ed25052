// Package api assembles the weather server's HTTP surface: the payment
// gated weather routes, health and metrics endpoints, and CORS handling.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runeape-sats/x402-sol-member/internal/weather"
	"github.com/runeape-sats/x402-sol-member/logger"
	"github.com/runeape-sats/x402-sol-member/metrics"
	x402gin "github.com/runeape-sats/x402-sol-member/pkg/gin"
	"github.com/runeape-sats/x402-sol-member/svm"
)

// RouterConfig wires the router's dependencies.
type RouterConfig struct {
	Facilitator     *svm.Facilitator
	Weather         *weather.Service
	Price           string
	PayTo           string
	Network         string
	Asset           string
	MemberToken     string
	MemberThreshold uint64
	ResourceRootURL string
	Logger          logger.Logger
	Metrics         metrics.Recorder
}

// NewHandler builds the complete HTTP handler: the Gin router wrapped
// with permissive CORS so browser clients can read payment headers.
func NewHandler(cfg RouterConfig) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:     []string{"Accept", "Content-Type", "X-Payment"},
		ExposedHeaders:     []string{"X-Payment-Response"},
		OptionsPassthrough: true,
		MaxAge:             300,
	})(NewRouter(cfg))
}

// NewRouter builds the Gin router. GET / and GET /weather serve the
// weather report behind the payment gate; /health and /metrics stay
// open; unknown routes get a JSON 404.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLatency(rec, cfg.Network))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "weather"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	paywallOpts := []x402gin.Option{
		x402gin.WithNetwork(cfg.Network),
		x402gin.WithAsset(cfg.Asset),
		x402gin.WithDescription("Current weather report"),
		x402gin.WithResourceRootURL(cfg.ResourceRootURL),
		x402gin.WithLogger(log),
	}
	if cfg.MemberToken != "" {
		paywallOpts = append(paywallOpts, x402gin.WithMemberToken(cfg.MemberToken, cfg.MemberThreshold))
	}
	paywall := x402gin.PaymentMiddleware(cfg.Facilitator, cfg.Price, cfg.PayTo, paywallOpts...)

	serveWeather := func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg.Weather.Current())
	}
	router.GET("/weather", paywall, serveWeather)
	router.GET("/", paywall, serveWeather)

	router.OPTIONS("/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type, X-Payment")
		c.Status(http.StatusNoContent)
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}

func requestLatency(rec metrics.Recorder, network string) gin.HandlerFunc {
	labels := map[string]string{"network": network}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rec.ObserveLatency("http_request", time.Since(start), labels)
	}
}
