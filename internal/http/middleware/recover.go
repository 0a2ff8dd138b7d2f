package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recover converte panics em 500 sem expor detalhes ao cliente.
func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error().Interface("panic", rec).Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).Msg("panic recuperado")
				writeRecoverError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func writeRecoverError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "erro interno",
	})
}
