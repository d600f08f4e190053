// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the quorumd HTTP surface.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianQuorum/services/exam"
	"github.com/AleutianAI/AleutianQuorum/services/quorumd/handlers"
)

// SetupRoutes registers all endpoints on the router.
func SetupRoutes(router *gin.Engine, solver exam.Solver, processor *exam.Processor) {
	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/consensus/solve", handlers.HandleSolve(solver))
		v1.POST("/exam/process", handlers.HandleExam(processor))
	}
}
