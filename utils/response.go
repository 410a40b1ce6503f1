package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"vitrine/apperr"
)

type M map[string]interface{}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// SendData wraps a successful result in the {status, data, metadata} envelope.
func SendData(w http.ResponseWriter, statusCode int, data interface{}, metadata interface{}) {
	resp := M{"status": "success", "data": data}
	if metadata != nil {
		resp["metadata"] = metadata
	}
	RespondWithJSON(w, statusCode, resp)
}

// SendError classifies err and writes the {status: "failed", error: ...}
// envelope. Business-rule violations keep their message and hints, validation
// failures become a per-field map, everything else is a generic 500.
func SendError(w http.ResponseWriter, err error) {
	status := apperr.StatusOf(err)

	var payload interface{}
	var se *apperr.ShopError
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &se):
		body := M{"message": se.Message}
		if len(se.Hints) > 0 {
			body["additional_info"] = se.Hints
		}
		payload = body
	case errors.As(err, &ve):
		payload = M{"message": "Invalid data in request", "fields": ve.Fields}
	default:
		payload = M{"message": "Could not process your request, please verify the data you sent and try again."}
	}

	RespondWithJSON(w, status, M{"status": "failed", "error": payload})
}
