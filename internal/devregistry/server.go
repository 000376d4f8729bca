// Package devregistry is a local, manifest-driven implementation of the
// contract registry service. It serves the same endpoints the registry client
// consumes and is used for development and tests.
package devregistry

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/registry"
)

type deploymentKey struct {
	name    string
	chainID uint64
}

// Server serves a Manifest over HTTP.
type Server struct {
	deployments map[deploymentKey]Deployment
	abis        map[string]json.RawMessage
	apiKey      string
	log         *zap.Logger
	metrics     *metrics.Metrics
}

type Option func(*Server)

// WithAPIKey makes every request require the key in registry.APIKeyHeader.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log.Named("devregistry")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func NewServer(m *Manifest, opts ...Option) *Server {
	s := &Server{
		deployments: make(map[deploymentKey]Deployment, len(m.Contracts)),
		abis:        make(map[string]json.RawMessage, len(m.ABIs)),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, d := range m.Contracts {
		s.deployments[deploymentKey{name: d.Name, chainID: d.ChainID}] = d
	}
	for id, raw := range m.ABIs {
		s.abis[id] = json.RawMessage(raw)
	}
	return s
}

// Handler returns the chi router for the registry endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Method(http.MethodGet, "/v1/contracts/{name}",
			s.metrics.Middleware(http.HandlerFunc(s.handleMetadata), "/v1/contracts/{name}"))
		r.Method(http.MethodGet, "/v1/contracts/{name}/address",
			s.metrics.Middleware(http.HandlerFunc(s.handleAddress), "/v1/contracts/{name}/address"))
		r.Method(http.MethodGet, "/v1/abis/{id}",
			s.metrics.Middleware(http.HandlerFunc(s.handleABI), "/v1/abis/{id}"))
	})
	return r
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get(registry.APIKeyHeader) != s.apiKey {
			s.log.Warn("Rejected request with missing or wrong API key", zap.String("path", r.URL.Path))
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Deployment, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, "invalid contract name", http.StatusBadRequest)
		return Deployment{}, false
	}
	chainID, err := strconv.ParseUint(r.URL.Query().Get("network"), 10, 64)
	if err != nil || chainID == 0 {
		http.Error(w, "network query parameter must be a numeric chain id", http.StatusBadRequest)
		return Deployment{}, false
	}
	d, ok := s.deployments[deploymentKey{name: name, chainID: chainID}]
	if !ok {
		s.log.Debug("Unknown deployment", zap.String("name", name), zap.Uint64("chain_id", chainID))
		http.Error(w, "contract not registered on network", http.StatusNotFound)
		return Deployment{}, false
	}
	return d, true
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, registry.ContractMetadata{
		LogicalName:     d.Name,
		Network:         d.ChainID,
		DeployedAddress: d.Address,
		AbiID:           d.AbiID,
	})
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, map[string]string{"address": d.Address})
}

func (s *Server) handleABI(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid abi id", http.StatusBadRequest)
		return
	}
	raw, ok := s.abis[id]
	if !ok {
		http.Error(w, "abi not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, registry.AbiDescriptor{ID: id, ABI: raw})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", zap.Error(err))
	}
}
