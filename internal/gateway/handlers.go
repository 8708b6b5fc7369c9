package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"vla/internal/domain"
	"vla/internal/router"
)

const maxBodyBytes = 64 << 10

// QueryRequest is the body of the query endpoint.
type QueryRequest struct {
	CommunityID ID     `json:"community_id"`
	APIKey      string `json:"api_key"`
	Message     string `json:"message"`
}

// QueryResponse is the reply of the query endpoint.
type QueryResponse struct {
	Response string `json:"response"`
}

// AnswerableRequest is the body of the triage endpoint.
type AnswerableRequest struct {
	CommunityID ID     `json:"community_id"`
	Message     string `json:"message"`
}

// AnswerableResponse is the reply of the triage endpoint.
type AnswerableResponse struct {
	Answerable bool `json:"answerable"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// ID accepts a numeric identifier sent either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type handlers struct {
	agent  Agent
	triage Triage
	logger *slog.Logger
}

func (h *handlers) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "agent not configured"})
		return
	}
	clientID, groupID := r.PathValue("client_id"), r.PathValue("group_id")
	if !isID(clientID) || !isID(groupID) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "client_id and group_id must be integers"})
		return
	}
	var in QueryRequest
	if !decodeBody(w, r, &in) {
		return
	}
	if !isID(string(in.CommunityID)) || strings.TrimSpace(in.Message) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "community_id and message are required"})
		return
	}

	reply, err := h.agent.Route(r.Context(), router.Request{
		Key:     domain.ConversationKey{CommunityID: string(in.CommunityID), ClientID: clientID},
		GroupID: groupID,
		APIKey:  in.APIKey,
		Message: in.Message,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Response: reply})
}

func (h *handlers) answerable(w http.ResponseWriter, r *http.Request) {
	if h.triage == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "triage not configured"})
		return
	}
	var in AnswerableRequest
	if !decodeBody(w, r, &in) {
		return
	}
	if !isID(string(in.CommunityID)) || strings.TrimSpace(in.Message) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "community_id and message are required"})
		return
	}
	ok, err := h.triage.AnswerableFor(r.Context(), string(in.CommunityID), in.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnswerableResponse{Answerable: ok})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, router.ErrEmptyKey), errors.Is(err, router.ErrEmptyMessage):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
	case r.Context().Err() != nil:
		// client went away; nothing useful to send
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Detail: "upstream failure"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func isID(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
