package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/server/metrics"
	"github.com/gorilla/mux"
)

// NewRouter wires the handlers. Writes go through the rate limiter; every
// matched route is instrumented.
func NewRouter(h *Handler, limiter *RateLimiter, m *metrics.Metrics) *mux.Router {
	h.OnStored = m.CodeStored
	limiter.OnLimited = func(*http.Request) { m.RateLimited() }

	r := mux.NewRouter()
	r.Use(m.Instrument)

	r.HandleFunc(common.HealthPath, h.health).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	r.HandleFunc(common.CodesPath, h.listCodes).Methods(http.MethodGet)
	r.Handle(common.CodesPath, limiter.Handler(http.HandlerFunc(h.createCode))).Methods(http.MethodPost)
	r.Handle(common.CodesPath+"/{id}", limiter.Handler(http.HandlerFunc(h.deleteCode))).Methods(http.MethodDelete)

	return r
}
