// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianQuorum/services/consensus"
	"github.com/AleutianAI/AleutianQuorum/services/exam"
)

// stubSolver returns one canned decision for any question.
type stubSolver struct {
	decision *consensus.ConsensusDecision
	err      error
}

func (s *stubSolver) SolveQuestion(_ context.Context, q consensus.Question) (*consensus.ConsensusDecision, error) {
	if s.err != nil {
		return nil, s.err
	}
	d := *s.decision
	d.QuestionID = q.ID
	return &d, nil
}

func acceptedDecision() *consensus.ConsensusDecision {
	return &consensus.ConsensusDecision{
		SessionID:    "session-1",
		Status:       consensus.DecisionAccepted,
		Selected:     "4",
		SelectedKey:  "4",
		Tier:         consensus.TierUnanimous,
		AttemptsUsed: 1,
		Attempts: []consensus.Attempt{{
			Index: 1,
			Candidates: []consensus.CandidateAnswer{
				{Solver: 1, Raw: "4", Key: "4", OK: true},
				{Solver: 2, Raw: "4", Key: "4", OK: true},
				{Solver: 3, Raw: "four", Key: "4", OK: true},
			},
		}},
		FinalizedAt: time.Now(),
	}
}

func solveRouter(solver exam.Solver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/consensus/solve", HandleSolve(solver))
	return router
}

func TestHandleSolve(t *testing.T) {
	router := solveRouter(&stubSolver{decision: acceptedDecision()})

	body := `{"id": "q1", "prompt": "What is 2+2?", "kind": "free_form", "points": 2}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/consensus/solve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var decision consensus.ConsensusDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, "q1", decision.QuestionID)
	assert.Equal(t, consensus.DecisionAccepted, decision.Status)
	assert.Equal(t, "4", decision.Selected)
	assert.Len(t, decision.Attempts, 1)
}

func TestHandleSolve_BadRequests(t *testing.T) {
	router := solveRouter(&stubSolver{decision: acceptedDecision()})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing prompt", `{"id": "q1", "kind": "free_form"}`},
		{"unknown kind", `{"id": "q1", "prompt": "p", "kind": "essay"}`},
		{"path traversal id", `{"id": "../x", "prompt": "p", "kind": "free_form"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/consensus/solve", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleSolve_EngineFault(t *testing.T) {
	router := solveRouter(&stubSolver{err: errors.New("all backends down")})

	body := `{"id": "q1", "prompt": "p", "kind": "free_form"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/consensus/solve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "all backends down")
}

func TestHandleExam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	processor := exam.NewProcessor(&stubSolver{decision: acceptedDecision()}, 2)
	router.POST("/v1/exam/process", HandleExam(processor))

	body := `{
		"total_points": 4,
		"total_time_min": 30,
		"exercises": [
			{"total_points": 4, "sub_questions": [
				{"question_text_latex": "What is $2+2$?", "question_answer_latex": "", "available_points": 4}
			]}
		]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/exam/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Summary exam.Summary `json:"summary"`
		Exam    exam.Exam    `json:"exam"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.TotalQuestions)
	assert.Equal(t, 1, resp.Summary.AgreedAnswers)
	assert.Equal(t, "4", resp.Exam.Exercises[0].SubQuestions[0].QuestionAnswerLatex)
}

func TestHandleExam_BadRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	processor := exam.NewProcessor(&stubSolver{decision: acceptedDecision()}, 1)
	router.POST("/v1/exam/process", HandleExam(processor))

	for name, body := range map[string]string{
		"not json":     "{nope",
		"no exercises": `{"total_points": 0, "total_time_min": 0, "exercises": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/exam/process", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
