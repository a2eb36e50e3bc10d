package web

import (
	"github.com/kozaktomas/face-auth/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	biometricHandler := handlers.NewBiometricHandler(s.flows, s.config.Server.MaxUploadSize, s.log)

	s.router.Get("/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Post("/registrar", biometricHandler.Register)
	s.router.Post("/autenticar", biometricHandler.Authenticate)
}
