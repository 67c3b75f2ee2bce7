// Package api exposes the settlement engine over HTTP. Handlers are thin:
// bind, call the service, render JSON. User identity comes from the
// X-User-ID header; a gateway in front of this service is expected to
// authenticate and set it.
package api

import (
	"net/http"
	"strconv"

	"lottopay/config"
	"lottopay/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottopay_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lottopay_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Server bundles the HTTP surface of the settlement engine
type Server struct {
	router      *gin.Engine
	deposits    service.DepositService
	withdrawals service.WithdrawalService
	payouts     service.PayoutService
	fairness    service.FairnessService
}

// NewServer wires the router. Pass the same service instances the
// background workers use; the payout trigger relies on the processor's
// single-flight guard living in one shared service.
func NewServer(cfg *config.Config, deposits service.DepositService, withdrawals service.WithdrawalService, payouts service.PayoutService, fairness service.FairnessService) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:      gin.New(),
		deposits:    deposits,
		withdrawals: withdrawals,
		payouts:     payouts,
		fairness:    fairness,
	}

	s.router.Use(gin.Recovery(), metricsMiddleware())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	{
		v1.GET("/deposits/info", s.getDepositInfo)
		v1.POST("/withdrawals", s.requestWithdrawal)
		v1.GET("/withdrawals/info", s.getWithdrawalInfo)
		v1.GET("/transactions", s.getTransactionHistory)
		v1.GET("/draws/:id/verification", s.verifyDraw)

		admin := v1.Group("/admin")
		{
			admin.POST("/payouts/process", s.processPayouts)
			admin.POST("/payouts/requeue", s.requeuePayouts)
		}
	}

	return s
}

// Handler returns the router as an http.Handler for the server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(c.Request.Method, route))

		c.Next()

		timer.ObserveDuration()
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// userID extracts the authenticated user from the X-User-ID header. Returns
// false after writing the error response.
func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return 0, false
	}
	return id, true
}
