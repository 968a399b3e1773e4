package middleware

import (
	"github.com/go-chi/cors"
)

// CORS builds cors.Options for the given allowed origins. Credentials
// are disabled when a wildcard origin is configured, since browsers
// reject Access-Control-Allow-Credentials: true with "*".
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	allowCreds := true
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowCreds = false
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
