package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

type ReservationHTTP interface {
	Hold(c *gin.Context)
	Checkout(c *gin.Context)
	Release(c *gin.Context)
	ListMine(c *gin.Context)
}

type CalendarHTTP interface {
	Catalog(c *gin.Context)
	Calendar(c *gin.Context)
}

type AdminHTTP interface {
	SetSlot(c *gin.Context)
}

type WebhookHTTP interface {
	Receive(c *gin.Context)
}

type ChangesHTTP interface {
	Stream(c *gin.Context)
}

type Handlers struct {
	Reservation    ReservationHTTP
	Calendar       CalendarHTTP
	Admin          AdminHTTP
	Webhook        WebhookHTTP
	Changes        ChangesHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Reservation != nil {
		api.POST("/reservations/hold", h.Reservation.Hold)
		api.POST("/reservations/:id/checkout", h.Reservation.Checkout)
		api.POST("/reservations/:id/release", h.Reservation.Release)
		api.GET("/me/reservations", h.Reservation.ListMine)
	}
	if h.Calendar != nil {
		api.GET("/units", h.Calendar.Catalog)
		api.GET("/units/:id/calendar", h.Calendar.Calendar)
	}
	if h.Admin != nil {
		api.POST("/admin/slots", h.Admin.SetSlot)
	}
	if h.Webhook != nil {
		api.POST("/payments/webhook", h.Webhook.Receive)
	}
	if h.Changes != nil {
		api.GET("/changes", h.Changes.Stream)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
