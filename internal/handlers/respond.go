package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// writeJSON renders v as a JSON response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondError renders a failure body and logs the underlying error when present
func respondError(w http.ResponseWriter, status int, userMsg string, err error) {
	if err != nil {
		log.Printf("%s: %v", userMsg, err)
	}
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": userMsg,
	})
}
