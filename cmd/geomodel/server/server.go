// Package server exposes parsing, validation, transformation, generation
// and persistence over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/generate"
	"geo-tools/cmd/geomodel/store"
	"geo-tools/cmd/geomodel/structural"
	"geo-tools/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// Deps are the collaborators of the API. Repo and Generator may be nil;
// the routes that need them then answer 503. BodyLimit is an echo size
// string such as "2M".
type Deps struct {
	Repo       *store.Repository
	Generator  *generate.Generator
	BodyLimit  string
	Extent     structural.ModelExtent
	Resolution structural.ModelResolution
}

type Server struct {
	echo        *echo.Echo
	deps        Deps
	engine      *dsl.Engine
	transformer *structural.Transformer
}

func New(deps Deps) *Server {
	if deps.BodyLimit == "" {
		deps.BodyLimit = "2M"
	}
	if deps.Extent == (structural.ModelExtent{}) {
		deps.Extent = structural.DefaultExtent()
	}
	if deps.Resolution == (structural.ModelResolution{}) {
		deps.Resolution = structural.DefaultResolution()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(deps.BodyLimit))

	s := &Server{
		echo:        e,
		deps:        deps,
		engine:      dsl.NewEngine(),
		transformer: structural.NewTransformer(),
	}
	s.RegisterRoutes(e)
	return s
}

// Handler is the API as a plain http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server", "err", err)
		return err
	}
	return nil
}
