package http

import (
	"net/http"

	"tripledger/internal/auth"
	applog "tripledger/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.deps.Auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := s.deps.Tokens.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
		InfoContext(r.Context(), "User registered", applog.FieldUserID, user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserDTO(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.deps.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := s.deps.Tokens.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserDTO(user)})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Store.GetUserByID(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{User: toUserDTO(user)})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.deps.Auth.UpdateProfile(r.Context(), UserID(r.Context()), auth.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{User: toUserDTO(user)})
}
