package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleSpendingPatterns(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Analysis.SpendingPatterns(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "spending_patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIncomeVariability(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Analysis.IncomeVariability(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "income_variability", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleComprehensive(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Analysis.Comprehensive(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "comprehensive_analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	goal := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	out, err := s.svc.Analysis.Goals(r.Context(), userID(r.Context()), goal)
	if err != nil {
		writeServiceError(w, r, "goals", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Analysis.Recommendations(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "recommendations", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type coachRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	var in coachRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "coach", err)
		return
	}
	in.Question = sanitizeInput(in.Question)
	if in.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	out, err := s.svc.Analysis.Coach(r.Context(), userID(r.Context()), in.Question)
	if err != nil {
		writeServiceError(w, r, "coach", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
