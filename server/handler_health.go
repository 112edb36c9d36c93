package server

import (
	"context"
	"net/http"
	"time"

	"github.com/passlens/passlens/pkg/detector"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.Detector.Info()

	status := "healthy"

	if !info.ModelLoaded {
		status = "unhealthy"
	}

	if pinger, ok := s.Detector.(detector.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			status = "unhealthy"
		}
	}

	writeJson(w, HealthResponse{
		Status: status,

		ModelLoaded: info.ModelLoaded,
		ModelType:   info.ModelType,
		Device:      info.Device,
	})
}
