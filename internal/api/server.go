package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/internal/api/httperrors"
	"github.com/draftforge/go-contract-session/internal/config"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/persistence"
)

// Router groups the echo route hierarchy.
type Router struct {
	Routes        []*echo.Route
	Root          *echo.Group
	Management    *echo.Group
	APIV1Sessions *echo.Group
}

// Server is the central struct keeping all the dependencies of the HTTP
// surface. Handlers reach the core exclusively through Store.WithSession.
type Server struct {
	Config   config.Server
	Echo     *echo.Echo
	Router   *Router
	Store    *persistence.Router
	Contract *contract.Service
}

func NewServer(cfg config.Server, store *persistence.Router, contractSvc *contract.Service) *Server {
	s := &Server{
		Config:   cfg,
		Store:    store,
		Contract: contractSvc,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())

	s.Echo = e
	s.Router = &Router{
		Root:          e.Group(""),
		Management:    e.Group("/-"),
		APIV1Sessions: e.Group("/api/v1/sessions"),
	}

	s.Router.Management.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.Router.Management.GET("/healthy", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Demotion is sticky; operators re-enable the remote backend here once
	// it is healthy again.
	s.Router.Management.POST("/probe-remote", func(c echo.Context) error {
		if err := s.Store.Probe(c.Request().Context()); err != nil {
			return httperrors.NewHTTPError(http.StatusServiceUnavailable, httperrors.TypeGeneric, err.Error())
		}
		return c.String(http.StatusOK, "OK")
	})

	return s
}

// Start begins serving on the configured listen address.
func (s *Server) Start() error {
	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("Shutting down server")
	return s.Echo.Shutdown(ctx)
}

// errorHandler renders HTTPError payloads and maps unexpected errors to 500.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *httperrors.HTTPError
	if !errors.As(err, &httpErr) {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			httpErr = httperrors.NewHTTPError(echoErr.Code, httperrors.TypeGeneric, http.StatusText(echoErr.Code))
		} else {
			log.Error().Err(err).Msg("Unhandled error in request")
			httpErr = httperrors.NewHTTPError(http.StatusInternalServerError, httperrors.TypeGeneric, "Internal Server Error")
		}
	}

	if writeErr := c.JSON(httpErr.Code, httpErr); writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
