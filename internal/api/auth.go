package api

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
)

const authRealm = `Basic realm="pinnode"`

// basicAuthMiddleware checks credentials on operations that declare a
// security requirement.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		reject := func(msg string, errs ...error) {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
		}

		authHeader := ctx.Header("Authorization")
		if authHeader == "" {
			reject("Authentication required")
			return
		}

		const prefix = "Basic "
		if !strings.HasPrefix(authHeader, prefix) {
			reject("Invalid authentication type")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
		if err != nil {
			reject("Invalid credentials format", err)
			return
		}

		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			reject("Invalid credentials format")
			return
		}
		if user != username || !passwordMatches(password, pass) {
			reject("Invalid credentials")
			return
		}

		next(ctx)
	}
}

// passwordMatches compares against a bcrypt hash when the configured
// password is one, otherwise against the plaintext.
func passwordMatches(configured, given string) bool {
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
