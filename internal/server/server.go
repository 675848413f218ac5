package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"paymob-integration/internal/handler"
	"paymob-integration/internal/service"
)

type Server struct {
	echo          *echo.Echo
	paymobHandler *handler.PaymobHandler
}

func NewServer(checkout *service.CheckoutService, callback *service.CallbackService, actions *service.ActionService, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:          e,
		paymobHandler: handler.NewPaymobHandler(checkout, callback, actions),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status": "ok",
		})
	})

	paymob := api.Group("/paymob")

	paymob.POST("/pay", s.paymobHandler.Pay)
	// The processor POSTs webhooks and redirects browsers via GET to
	// the same path.
	paymob.POST("/callback", s.paymobHandler.Webhook)
	paymob.GET("/callback", s.paymobHandler.Return)

	paymob.POST("/orders/:id/void", s.paymobHandler.Void)
	paymob.POST("/orders/:id/refund", s.paymobHandler.Refund)
	paymob.GET("/orders/:id/inquiry", s.paymobHandler.Inquiry)
	paymob.GET("/integrations", s.paymobHandler.Integrations)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
