// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the quorumd HTTP API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianQuorum/services/consensus"
	"github.com/AleutianAI/AleutianQuorum/services/exam"
)

// HandleSolve runs one question through the consensus engine.
//
// POST /v1/consensus/solve with a question body:
//
//	{"id": "q1", "prompt": "What is 2+2?", "kind": "free_form", "points": 2}
//
// Responds with the full consensus decision, including the attempt history.
// An unresolved decision is still a 200: exhaustion is a defined outcome
// and the caller reads the status field.
func HandleSolve(solver exam.Solver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q consensus.Question
		if err := c.ShouldBindJSON(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := consensus.ValidateQuestion(q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		decision, err := solver.SolveQuestion(c.Request.Context(), q)
		if err != nil {
			if errors.Is(err, c.Request.Context().Err()) {
				// Client went away; nothing useful to send.
				c.Status(http.StatusRequestTimeout)
				return
			}
			slog.Error("Consensus run failed",
				slog.String("question_id", q.ID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, decision)
	}
}

// HandleExam solves a whole UEF exam document.
//
// POST /v1/exam/process with the exam JSON as the body. Responds with the
// answered exam and the run summary.
func HandleExam(processor *exam.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var doc exam.Exam
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := doc.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		summary, err := processor.Process(c.Request.Context(), &doc)
		if err != nil {
			if errors.Is(err, c.Request.Context().Err()) {
				c.Status(http.StatusRequestTimeout)
				return
			}
			slog.Error("Exam processing failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"summary": summary,
			"exam":    doc,
		})
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
