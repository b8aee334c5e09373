package api

import (
	"encoding/json"
	"log"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// serverError logs the underlying cause and answers with a generic message;
// detail never reaches the client.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("Internal error on %s %s: %v", r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
