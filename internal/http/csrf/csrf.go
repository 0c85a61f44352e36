package csrf

import (
	"crypto/sha256"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"
	gcsrf "github.com/gorilla/csrf"

	"github.com/jw6ventures/fitverse/internal/config"
)

const (
	cookieName = "fitverse_csrf"
	fieldName  = "_csrf"
	headerName = "X-CSRF-Token"
)

// Middleware issues a CSRF token cookie and validates it on state-changing
// requests. Plain-HTTP deployments skip the TLS-only Referer check.
func Middleware(cfg *config.Config) func(http.Handler) http.Handler {
	plaintext := true
	var trusted []string
	if base, err := url.Parse(cfg.BaseURL); err == nil {
		plaintext = base.Scheme != "https"
		if base.Host != "" {
			trusted = append(trusted, base.Host)
		}
	}

	protect := gcsrf.Protect(authKey(cfg.Session.Secret),
		gcsrf.CookieName(cookieName),
		gcsrf.FieldName(fieldName),
		gcsrf.RequestHeader(headerName),
		gcsrf.Path("/"),
		gcsrf.Secure(!plaintext),
		gcsrf.SameSite(gcsrf.SameSiteLaxMode),
		gcsrf.TrustedOrigins(trusted),
		gcsrf.ErrorHandler(http.HandlerFunc(rejected)),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if plaintext {
				r = gcsrf.PlaintextHTTPRequest(r)
			}
			h.ServeHTTP(w, r)
		})
	}
}

// Token returns the masked token for the current request.
func Token(r *http.Request) string {
	return gcsrf.Token(r)
}

// Field returns a hidden form input carrying the token.
func Field(r *http.Request) template.HTML {
	return gcsrf.TemplateField(r)
}

func rejected(w http.ResponseWriter, r *http.Request) {
	slog.Warn("csrf rejected", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "reason", gcsrf.FailureReason(r))
	http.Error(w, "invalid csrf token", http.StatusForbidden)
}

// authKey derives the 32-byte token key from the session secret.
func authKey(secret string) []byte {
	sum := sha256.Sum256([]byte("fitverse-csrf:" + secret))
	return sum[:]
}
