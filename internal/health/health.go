package health

import (
	"context"
	"net/http"
	"time"

	"homehub/internal/logs"
	"homehub/internal/models"

	"github.com/gorilla/mux"
)

const readyTimeout = 3 * time.Second

// Checker — зависимость, которую проверяет /readyz (хранилище, кэш).
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

type namedChecker struct {
	name string
	ping func(ctx context.Context) error
}

func (c namedChecker) Name() string                   { return c.name }
func (c namedChecker) Ping(ctx context.Context) error { return c.ping(ctx) }

// CheckerFunc — обёртка для всего, у чего есть Ping(ctx).
func CheckerFunc(name string, ping func(ctx context.Context) error) Checker {
	return namedChecker{name: name, ping: ping}
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// RegisterRoutes — только /healthz.
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		models.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	}).Methods(http.MethodGet)
}

// RegisterRoutesWithCheckers — /healthz и /readyz.
func RegisterRoutesWithCheckers(r *mux.Router, checkers ...Checker) {
	RegisterRoutes(r)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
		defer cancel()

		out := statusResponse{Status: "ok", Checks: make(map[string]string, len(checkers))}
		code := http.StatusOK
		for _, c := range checkers {
			if err := c.Ping(ctx); err != nil {
				logs.FromContext(ctx).Warnf("readyz: %s: %v", c.Name(), err)
				out.Checks[c.Name()] = "error"
				out.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			out.Checks[c.Name()] = "ok"
		}
		models.WriteJSON(w, code, out)
	}).Methods(http.MethodGet)
}
