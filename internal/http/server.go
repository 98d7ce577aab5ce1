package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(engine *gin.Engine) *Server {
	return &Server{
		Engine: engine,
		srv:    &http.Server{Handler: engine, ReadHeaderTimeout: 10 * time.Second},
	}
}

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run(address string) error {
	s.srv.Addr = address
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
