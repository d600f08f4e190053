// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianQuorum/services/consensus"
	"github.com/AleutianAI/AleutianQuorum/services/exam"
)

type noopSolver struct{}

func (noopSolver) SolveQuestion(_ context.Context, q consensus.Question) (*consensus.ConsensusDecision, error) {
	return &consensus.ConsensusDecision{
		QuestionID: q.ID,
		Status:     consensus.DecisionAccepted,
		Selected:   "4",
		Tier:       consensus.TierUnanimous,
	}, nil
}

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, noopSolver{}, exam.NewProcessor(noopSolver{}, 1))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/v1/consensus/solve", http.StatusBadRequest}, // empty body
		{http.MethodPost, "/v1/exam/process", http.StatusBadRequest},   // empty body
		{http.MethodGet, "/v1/consensus/solve", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}
}
