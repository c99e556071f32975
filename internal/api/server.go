// Package api serves the customer portal: HTML pages under /Customer, two
// JSON endpoints and the health probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dustbinpro/internal/config"
	"dustbinpro/internal/domain"
	"dustbinpro/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"
)

// Services are the portal components the handlers call.
type Services struct {
	Bookings      domain.BookingService
	Stats         domain.StatsService
	Notifications domain.NotificationService
	Payments      domain.PaymentService
	Profiles      domain.ProfileService
	Support       domain.SupportService
}

// Pinger reports document store reachability for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      *config.Config
	svc      Services
	sessions *session.Manager
	store    Pinger
	views    views
	engine   *gin.Engine
	server   *http.Server
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewServer(cfg *config.Config, svc Services, sessions *session.Manager, store Pinger, logger *zerolog.Logger) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		store:    store,
		views:    v,
		logger:   logger,
		now:      time.Now,
	}
	s.engine = s.routes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if s.cfg.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	limiter := newRateLimiter(s.cfg.HTTP.RateLimit)
	r.Use(requestID(), recovery(s.logger), observe())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/readyz", s.handleReadyz)
	r.StaticFS("/static", staticFiles())

	portal := r.Group("/", s.sessions.Middleware(), requestLogger(s.logger), limiter.middleware())
	portal.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/Customer/Dashboard") })

	customer := portal.Group("/Customer")
	api := customer.Group("", jsonCORS(s.cfg.HTTP.CORSOrigins))
	api.POST("/MarkNotificationRead", session.RequireCustomerJSON(gin.H{"success": false}), s.handleMarkNotificationRead)
	api.GET("/CheckActiveBooking", session.RequireCustomerJSON(gin.H{"hasActiveBooking": false}), s.handleCheckActiveBooking)

	pages := customer.Group("", session.RequireCustomer())
	pages.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, "/Customer/Dashboard") })
	pages.GET("/Dashboard", s.handleDashboard)
	pages.POST("/Logout", s.handleLogout)
	pages.GET("/BookCleaning", s.handleBookCleaningForm)
	pages.POST("/BookCleaning", s.handleBookCleaning)
	pages.GET("/BookingHistory", s.handleBookingHistory)
	pages.GET("/BookingHistory/Export", s.handleExportHistory)
	pages.POST("/CancelBooking", s.handleCancelBooking)
	pages.GET("/MakePayment", s.handlePaymentForm)
	pages.POST("/MakePayment", s.handleMakePayment)
	pages.GET("/Profile", s.handleProfile)
	pages.POST("/UpdateProfile", s.handleUpdateProfile)
	pages.GET("/Support", s.handleSupport)
	pages.POST("/SubmitSupport", s.handleSubmitSupport)
	pages.GET("/Notifications", s.handleNotifications)

	return r
}

// Handler is the engine wrapped with CSRF protection unless it is disabled.
func (s *Server) Handler() http.Handler {
	if s.cfg.HTTP.CSRFDisabled {
		return s.engine
	}
	protect := csrf.Protect([]byte(s.cfg.HTTP.CSRFKey),
		csrf.Secure(s.cfg.Session.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Warn().Str("path", r.URL.Path).Err(csrf.FailureReason(r)).Msg("csrf check failed")
			http.Error(w, "Forbidden - invalid request token", http.StatusForbidden)
		})),
	)
	return protect(s.engine)
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP portal listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
