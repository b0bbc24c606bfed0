package server

import (
	"github.com/nulzo/inference-gateway/internal/server/middleware"
	v1 "github.com/nulzo/inference-gateway/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	// Health check stays outside the rate limit so probes never 429.
	healthHandler := v1.NewHealthHandler(s.service)
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(
		s.config.RateLimit.RequestsPerSecond,
		s.config.RateLimit.Burst,
		s.logger,
	)

	api := s.router.Group("/v1")
	api.Use(limiter.Middleware())
	{
		generateHandler := v1.NewGenerateHandler(s.service)
		api.POST("/generate", generateHandler.Generate)
		api.POST("/generate-image", generateHandler.GenerateImage)

		jobHandler := v1.NewJobHandler(s.service)
		api.GET("/job/:id", jobHandler.GetJob)
		api.DELETE("/job/:id", jobHandler.CancelJob)
		api.GET("/jobs", jobHandler.ListJobs)

		streamHandler := v1.NewStreamHandler(s.service)
		api.GET("/stream/:id", streamHandler.Stream)

		modelHandler := v1.NewModelHandler(s.service)
		api.GET("/models", modelHandler.ListModels)
	}
}
