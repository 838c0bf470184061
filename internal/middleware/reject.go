package middleware

import (
	"encoding/json"
	"net/http"
)

// reject writes the same {"code","message"} body the handlers use, so screens
// parse middleware refusals like any other API error.
func reject(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}
