package http

import (
	"net/http"

	"fincoach/internal/core"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "register", err)
		return
	}
	session, err := s.svc.Accounts.Register(r.Context(), in.Email, in.Password, sanitizeInput(in.Name))
	if err != nil {
		writeServiceError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "login", err)
		return
	}
	session, err := s.svc.Accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Accounts.Profile(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "get_profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var in core.Profile
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "save_profile", err)
		return
	}
	p, err := s.svc.Accounts.SaveProfile(r.Context(), userID(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, "save_profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
