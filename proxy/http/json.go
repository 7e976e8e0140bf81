package http

import (
	"encoding/json"
	"net/http"

	"go.ezyvote.org/ezyvote"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// WriteJSON writes the status and the JSON encoding of the value.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		ezyvote.Logger.Warn().Err(err).
			Str("requestID", RequestID(r)).
			Msg("failed to write response")
	}
}

// WriteError writes the status and the error message.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	WriteJSON(w, r, status, ErrorResponse{Message: err.Error()})
}
