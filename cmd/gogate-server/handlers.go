package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/metrics/export/prometheus"
	"github.com/MrEthical07/goGate/middleware"
)

func newRouter(engine *goGate.Engine, logger hclog.Logger) http.Handler {
	h := &handlers{engine: engine, logger: logger.Named("http")}
	requireAuth := middleware.Require(engine)
	admin := func(next http.Handler) http.Handler {
		return requireAuth(middleware.RequireRole("admin")(next))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /refresh", h.refresh)
	// Logout stays outside Require so expired tokens can still sign out, and so
	// the guard does not renew the token being retired. The engine ignores
	// tokens it did not sign.
	mux.HandleFunc("POST /logout", h.logout)
	mux.Handle("GET /me", requireAuth(http.HandlerFunc(h.me)))
	mux.Handle("GET /users/{userID}/profile",
		requireAuth(middleware.RequireVerified()(middleware.RequireOwnership("userID")(http.HandlerFunc(h.me)))))
	mux.Handle("GET /public", middleware.Optional(engine)(http.HandlerFunc(h.public)))
	mux.Handle("POST /admin/users/{userID}/invalidate", admin(http.HandlerFunc(h.invalidate)))
	mux.Handle("POST /admin/snapshots/flush", admin(http.HandlerFunc(h.flush)))
	mux.Handle("GET /admin/security", admin(http.HandlerFunc(h.security)))
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", prometheus.New(engine).Handler())

	return withClientIP(mux)
}

type handlers struct {
	engine *goGate.Engine
	logger hclog.Logger
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "malformed request body"})
		return
	}

	res, err := h.engine.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res.NeedsRehash {
		h.logger.Info("stored password hash uses outdated parameters", "user_id", res.User.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       res.User,
	})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.engine.Refresh(r.Context(), bearer(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), bearer(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (h *handlers) public(w http.ResponseWriter, r *http.Request) {
	msg := "hello, guest"
	if u, ok := middleware.UserFromContext(r.Context()); ok {
		msg = "hello, " + u.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (h *handlers) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.InvalidateUser(r.Context(), r.PathValue("userID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) flush(w http.ResponseWriter, r *http.Request) {
	n := h.engine.FlushSnapshots(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (h *handlers) security(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.SecurityReport())
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Health(r.Context())
	code := http.StatusOK
	if !status.CacheReachable {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"cache_available":  status.CacheAvailable,
		"cache_reachable":  status.CacheReachable,
		"cache_latency_ms": status.CacheLatency.Milliseconds(),
	})
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	rej, ok := goGate.RejectionOf(err)
	if !ok {
		h.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}
	writeJSON(w, rej.Status, map[string]any{"success": false, "error": rej.Message, "code": rej.Code})
}

func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(goGate.WithClientIP(r.Context(), host)))
	})
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
