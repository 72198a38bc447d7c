package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	corsAllowOrigin                = "*"
	headerAccessControlAllowOrigin = "Access-Control-Allow-Origin"
	headerContentType              = "Content-Type"
	contentTypeJSON                = "application/json"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.Header().Set(headerAccessControlAllowOrigin, corsAllowOrigin)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": sanitizeError(err)})
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\"", "'")
}
