package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Server is the thin transport layer in front of the pipeline. Signature
// verification and event-type filtering belong to the upstream notifier and
// are not implemented here.
type Server struct {
	Cfg  Config
	Pipe *Pipeline
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /intake", s.handleIntake)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type intakeResponse struct {
	Status      string `json:"status"`
	RequestID   string `json:"request_id,omitempty"`
	FeatureName string `json:"feature_name,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Warnings    int    `json:"warnings,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var sub RawSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, intakeResponse{Status: "error", Error: "malformed input: invalid JSON"})
		return
	}

	timeout := time.Duration(s.Cfg.LLMTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	result, err := s.Pipe.Process(ctx, sub)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, intakeResponse{
			Status:      "success",
			RequestID:   result.Record.RequestID,
			FeatureName: result.Record.FeatureName,
			Domain:      result.Record.Domain,
			Fallback:    result.Fallback,
			Warnings:    len(result.SinkErrors),
		})
	case IsExtractionError(err):
		log.Printf("intake extraction error: %v", err)
		writeJSON(w, http.StatusUnprocessableEntity, intakeResponse{Status: "error", Error: "malformed input: " + err.Error()})
	case IsClassificationError(err):
		log.Printf("intake classification error: %v", err)
		writeJSON(w, http.StatusBadGateway, intakeResponse{Status: "error", Error: "classification failed"})
	default:
		log.Printf("intake internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, intakeResponse{Status: "error", Error: "internal processing failure"})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "intakebot",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response error: %v", err)
	}
}
