package debug

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/retroterm/internal/models"
	"github.com/victorivanov/retroterm/internal/notify"
	"github.com/victorivanov/retroterm/internal/session"
)

// Server exposes read-only session state on a local HTTP port for
// inspection while the client runs headless.
type Server struct {
	echo  *echo.Echo
	cache *session.DMCache
	queue *notify.Queue
}

// NewServer wires the status routes.
func NewServer(cache *session.DMCache, queue *notify.Queue) *Server {
	s := &Server{cache: cache, queue: queue}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/healthz", s.health)
	e.GET("/session/dms", s.listDMs)
	e.GET("/session/notifications", s.notifications)
	s.echo = e

	return s
}

// Start serves on addr until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type dmStateResponse struct {
	Channels []models.DMChannel `json:"channels"`
	Current  *models.ID         `json:"current,omitempty"`
}

func (s *Server) listDMs(c echo.Context) error {
	resp := dmStateResponse{Channels: s.cache.Channels()}
	if cur, ok := s.cache.Current(); ok {
		id := cur.ID
		resp.Current = &id
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) notifications(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"active": s.queue.Active()})
}
