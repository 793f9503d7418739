// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /v1/jsdoc endpoints.
//
// Description:
//
//	Registers all /v1/jsdoc/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/jsdoc/rewrite - Rewrite the comments of one source file
//	GET  /v1/jsdoc/health - Health check
//
// Example:
//
//	handlers := server.NewHandlers(engine.Options())
//	v1 := router.Group("/v1")
//	server.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	jsdoc := rg.Group("/jsdoc")
	{
		jsdoc.POST("/rewrite", handlers.HandleRewrite)
		jsdoc.GET("/health", handlers.HandleHealth)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the otelgin spans.
	ServiceName string

	// RequestsPerSecond and Burst configure the rate limiter on /v1.
	RequestsPerSecond float64
	Burst             int

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler
}

// NewRouter builds the gin engine with recovery, tracing, request IDs and
// rate limiting applied.
func NewRouter(cfg RouterConfig, handlers *Handlers) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "jsdoc-closure"
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(RequestID())

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := router.Group("/v1")
	v1.Use(RateLimit(cfg.RequestsPerSecond, cfg.Burst))
	RegisterRoutes(v1, handlers)
	return router
}
