package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/plugboard/plugboard/internal/errors"
	"github.com/plugboard/plugboard/internal/httputil"
	"github.com/plugboard/plugboard/pkg/console"
)

// pluginEntry is one row of the console index.
type pluginEntry struct {
	Label    string   `json:"label"`
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Path     string   `json:"path"`
	CSS      []string `json:"css,omitempty"`
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Console</title>
{{- range .CSS}}
<link rel="stylesheet" href="{{.}}">
{{- end}}
</head>
<body>
<h1>Console</h1>
<ul>
{{- range .Plugins}}
<li><a href="{{.Path}}">{{.Title}}</a>{{if .Category}} <em>({{.Category}})</em>{{end}}</li>
{{- end}}
</ul>
</body>
</html>
`))

// handleIndex lists the mounted plugins, as HTML for browsers and JSON for
// everyone else.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var entries []pluginEntry
	var css []string
	for _, p := range s.sortedPlugins() {
		entries = append(entries, pluginEntry{
			Label:    p.Label(),
			Title:    p.Title(),
			Category: p.Category(),
			Path:     "/console/" + p.Label() + "/",
			CSS:      p.CSSReferences(),
		})
		css = append(css, p.CSSReferences()...)
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexTemplate.Execute(w, struct {
			Plugins []pluginEntry
			CSS     []string
		}{entries, css})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plugins": entries,
	})
}

// healthResponse is the wire format of /healthz.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth aggregates the store and every health-checking plugin.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Checks: make(map[string]string),
	}

	if s.store != nil {
		if err := s.store.Health(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Checks["store"] = err.Error()
		} else {
			resp.Checks["store"] = "ok"
		}
	}

	for _, p := range s.sortedPlugins() {
		hc, ok := p.(console.HealthChecker)
		if !ok {
			continue
		}
		if err := hc.HealthCheck(); err != nil {
			resp.Status = "degraded"
			resp.Checks[p.Label()] = err.Error()
		} else {
			resp.Checks[p.Label()] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

// loginRequest is the wire format of /console/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin exchanges admin credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteServiceError(w, r, errors.InvalidFormat("request body is not valid JSON"))
		return
	}

	if req.Username != s.cfg.Auth.AdminUser ||
		bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth.AdminPasswordHash), []byte(req.Password)) != nil {
		s.log.LogSecurityEvent(r.Context(), "login_failed", map[string]interface{}{
			"username": req.Username,
		})
		httputil.Unauthorized(w, r, "invalid credentials")
		return
	}

	ttl := time.Duration(s.cfg.Auth.TokenTTLMinutes) * time.Minute
	token, err := s.auth.IssueToken(req.Username, "admin", ttl)
	if err != nil {
		httputil.WriteServiceError(w, r, errors.Internal("failed to issue token"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int(ttl.Seconds()),
	})
}
