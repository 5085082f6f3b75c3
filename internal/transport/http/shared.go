package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "verivote/pkg/domain-errors"
)

// errorEnvelope is the JSON error body every endpoint emits.
type errorEnvelope struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// writeError centralizes domain error translation to HTTP responses so all
// endpoints share one JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	envelope := errorEnvelope{Error: string(dErrors.CodeInternal)}

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = dErrors.ToHTTPStatus(de.Code)
		envelope.Error = string(de.Code)
		envelope.Description = de.Message
	}

	writeJSON(w, status, envelope)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
