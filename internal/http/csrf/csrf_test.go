package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jw6ventures/fitverse/internal/config"
)

func testHandler() http.Handler {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	return Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Token(r)))
	}))
}

func TestMiddlewareRejectsPostWithoutToken(t *testing.T) {
	h := testHandler()

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "http://localhost:8080/forums", nil))
	require.Equal(t, http.StatusOK, get.Code)
	token := get.Body.String()
	require.NotEmpty(t, token)
	cookies := get.Result().Cookies()
	require.NotEmpty(t, cookies)

	post := httptest.NewRequest(http.MethodPost, "http://localhost:8080/forums", strings.NewReader("title=x"))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		post.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	form := url.Values{"title": {"x"}, fieldName: {token}}
	post = httptest.NewRequest(http.MethodPost, "http://localhost:8080/forums", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		post.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareAcceptsHeaderToken(t *testing.T) {
	h := testHandler()

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil))

	post := httptest.NewRequest(http.MethodPost, "http://localhost:8080/forums/1/vote", nil)
	post.Header.Set(headerName, get.Body.String())
	for _, c := range get.Result().Cookies() {
		post.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsForeignOrigin(t *testing.T) {
	h := testHandler()

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil))

	post := httptest.NewRequest(http.MethodPost, "http://localhost:8080/logout", nil)
	post.Header.Set(headerName, get.Body.String())
	post.Header.Set("Origin", "https://evil.example")
	for _, c := range get.Result().Cookies() {
		post.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
