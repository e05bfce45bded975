package navigation

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	LoginPath    = "/login"
	RegisterPath = "/register"

	// ResetPattern is the storefront route that carries the reset token.
	ResetPattern = "/password/reset/{token}"
)

type Navigator interface {
	NavigateTo(path string)
}

// Pending holds at most one redirect for the page to follow on its next render.
type Pending struct {
	mu   sync.Mutex
	path string
}

func (p *Pending) NavigateTo(path string) {
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
}

// Take returns the pending redirect and clears it.
func (p *Pending) Take() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.path
	p.path = ""
	return path, path != ""
}

// Peek reports the pending redirect without consuming it.
func (p *Pending) Peek() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

var routes = func() *chi.Mux {
	r := chi.NewRouter()
	r.Get(ResetPattern, func(http.ResponseWriter, *http.Request) {})
	return r
}()

// TokenFromPath extracts the reset token from an escaped request path such as
// "/password/reset/abc123". The token is unescaped but otherwise untouched.
func TokenFromPath(escapedPath string) (string, bool) {
	rctx := chi.NewRouteContext()
	if !routes.Match(rctx, http.MethodGet, escapedPath) {
		return "", false
	}

	raw := rctx.URLParam("token")
	token, err := url.PathUnescape(raw)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// ResetPath builds the page path for a token.
func ResetPath(token string) string {
	return "/password/reset/" + url.PathEscape(token)
}
