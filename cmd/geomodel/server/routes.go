package server

import "github.com/labstack/echo/v4"

func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.health)

	api := e.Group("/api")

	// DSL routes
	api.GET("/dsl/grammar", s.grammar)
	api.POST("/dsl/parse", s.parse)
	api.POST("/dsl/validate", s.parse)
	api.POST("/dsl/format", s.format)
	api.POST("/dsl/generate", s.generate)

	// Model routes
	api.POST("/models/transform", s.transform)
	api.POST("/models", s.createModel)
	api.GET("/models", s.listModels)
	api.GET("/models/:id", s.getModel)
	api.PATCH("/models/:id/status", s.setModelStatus)

	// Document routes
	api.POST("/documents", s.createDocument)
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)
}
