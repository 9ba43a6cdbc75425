// Package server exposes the match center as a JSON API. Actor
// identity arrives via gateway headers; all permission decisions happen
// in the service layer.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"rinkcenter/internal/domain"
	"rinkcenter/internal/middleware"
	"rinkcenter/internal/service"
)

type Server struct {
	matches *service.MatchService
	logger  zerolog.Logger
}

func NewServer(matches *service.MatchService, logger zerolog.Logger) *Server {
	return &Server{matches: matches, logger: logger}
}

func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/penalty-codes", s.penaltyCodes).Methods(http.MethodGet)

	api.HandleFunc("/matches/{id}", s.getMatch).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/watch", s.watchMatch).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/start", s.startMatch).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/finish", s.finishMatch).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/cancel", s.cancelMatch).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/supplementary", s.saveSupplementary).Methods(http.MethodPut)

	api.HandleFunc("/matches/{id}/{side:home|away}/goals", s.addGoal).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/{side:home|away}/goals/{eventID}", s.updateGoal).Methods(http.MethodPut)
	api.HandleFunc("/matches/{id}/{side:home|away}/goals/{eventID}", s.removeGoal).Methods(http.MethodDelete)

	api.HandleFunc("/matches/{id}/{side:home|away}/penalties", s.addPenalty).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/{side:home|away}/penalties/{eventID}", s.updatePenalty).Methods(http.MethodPut)
	api.HandleFunc("/matches/{id}/{side:home|away}/penalties/{eventID}", s.removePenalty).Methods(http.MethodDelete)

	return r
}

func sideVar(r *http.Request) domain.Side {
	if mux.Vars(r)["side"] == string(domain.SideAway) {
		return domain.SideAway
	}
	return domain.SideHome
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps every error kind of the core to its own status and
// message so nothing is silently swallowed or blurred together.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var fe *domain.FieldError
	if errors.As(err, &fe) {
		resp.Field = fe.Field
	}

	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrMissingFinishType):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrStaleMatch):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrExternalUnavailable):
		status = http.StatusBadGateway
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) penaltyCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.matches.PenaltyCodes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, codes)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	view, err := s.matches.GetMatchView(r.Context(), mux.Vars(r)["id"], middleware.GetActor(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) startMatch(w http.ResponseWriter, r *http.Request) {
	view, err := s.matches.StartMatch(r.Context(), mux.Vars(r)["id"], middleware.GetActor(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type finishRequest struct {
	FinishType domain.FinishType `json:"finishType"`
}

func (s *Server) finishMatch(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := s.matches.FinishMatch(r.Context(), mux.Vars(r)["id"], middleware.GetActor(r.Context()), req.FinishType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) cancelMatch(w http.ResponseWriter, r *http.Request) {
	view, err := s.matches.CancelMatch(r.Context(), mux.Vars(r)["id"], middleware.GetActor(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) addGoal(w http.ResponseWriter, r *http.Request) {
	var goal domain.GoalEvent
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := s.matches.AddGoal(r.Context(), mux.Vars(r)["id"], sideVar(r), middleware.GetActor(r.Context()), goal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	var goal domain.GoalEvent
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	vars := mux.Vars(r)
	view, err := s.matches.UpdateGoal(r.Context(), vars["id"], sideVar(r), vars["eventID"], middleware.GetActor(r.Context()), goal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) removeGoal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.matches.RemoveGoal(r.Context(), vars["id"], sideVar(r), vars["eventID"], middleware.GetActor(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) addPenalty(w http.ResponseWriter, r *http.Request) {
	var penalty domain.PenaltyEvent
	if err := json.NewDecoder(r.Body).Decode(&penalty); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := s.matches.AddPenalty(r.Context(), mux.Vars(r)["id"], sideVar(r), middleware.GetActor(r.Context()), penalty)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) updatePenalty(w http.ResponseWriter, r *http.Request) {
	var penalty domain.PenaltyEvent
	if err := json.NewDecoder(r.Body).Decode(&penalty); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	vars := mux.Vars(r)
	view, err := s.matches.UpdatePenalty(r.Context(), vars["id"], sideVar(r), vars["eventID"], middleware.GetActor(r.Context()), penalty)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) removePenalty(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.matches.RemovePenalty(r.Context(), vars["id"], sideVar(r), vars["eventID"], middleware.GetActor(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) saveSupplementary(w http.ResponseWriter, r *http.Request) {
	var sheet domain.SupplementarySheet
	if err := json.NewDecoder(r.Body).Decode(&sheet); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := s.matches.SaveSupplementary(r.Context(), mux.Vars(r)["id"], middleware.GetActor(r.Context()), sheet)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// watchMatch streams live snapshots of an in-progress match as
// newline-delimited JSON until the match ends or the client goes away.
func (s *Server) watchMatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "streaming unsupported"})
		return
	}

	session := s.matches.WatchMatch(r.Context(), mux.Vars(r)["id"], middleware.GetActor(r.Context()))
	defer session.Stop()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case view, open := <-session.Updates():
			if !open {
				return
			}
			if err := enc.Encode(view); err != nil {
				s.logger.Debug().Err(err).Msg("live stream write failed")
				return
			}
			flusher.Flush()
		}
	}
}
