package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type settingsKey string

const (
	// PrettyKey is the key for the indented-output setting in the request context.
	PrettyKey settingsKey = "pretty"
)

// SettingsMiddleware checks for a "pretty=true" query parameter and sets a corresponding
// flag in the request context so responses are written indented.
func SettingsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pretty := r.URL.Query().Get("pretty") == "true"
		ctx := context.WithValue(r.Context(), PrettyKey, pretty)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsPretty returns true if the indented-output flag is set in the request context.
func IsPretty(ctx context.Context) bool {
	pretty, ok := ctx.Value(PrettyKey).(bool)
	return ok && pretty
}

// WriteJSON writes v with the given status, honoring the pretty setting.
func WriteJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	if IsPretty(r.Context()) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
