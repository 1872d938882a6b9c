package scanner

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"
)

// Server exposes the scanner's minimal HTTP surface: a health check
// and an on-demand scan trigger.
type Server struct {
	svc *Service
}

// NewServer wires an echo instance against svc.
func NewServer(svc *Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	s := &Server{svc: svc}
	e.GET("/health", s.health)
	e.POST("/scan", s.scan)

	return e
}

func (s *Server) health(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// scan triggers an immediate full sync in the background and returns
// 202 Accepted without waiting for it to finish.
func (s *Server) scan(c *echo.Context) error {
	go s.svc.FullSync(context.Background())
	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}
