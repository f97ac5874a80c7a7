package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.StandardLogger().Warnf("failed to encode response: %v", err)
	}
}

// Error sends an error response using the backend's {"detail": ...}
// convention, so local and remote errors look the same to the UI.
func Error(w http.ResponseWriter, log *logrus.Logger, message string, statusCode int) {
	if log != nil {
		log.Warnf("request failed: %s (status %d)", message, statusCode)
	}
	WriteJSON(w, statusCode, map[string]string{"detail": message})
}

// DecodeJSON decodes the request body into out.
func DecodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
