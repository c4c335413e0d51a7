package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/aggregator"
	"gitlab.com/socialfeed/worker/metrics"
	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/providers"
	"gitlab.com/socialfeed/worker/store"
)

const adminTokenHeader = "X-Admin-Token"

// Aggregator is the feed surface the service exposes.
type Aggregator interface {
	Aggregate(ctx context.Context, opts aggregator.Options) ([]feed.Post, error)
	ClearAllCaches() error
}

// ProviderFinder resolves provider records for the authorization
// callback.
type ProviderFinder interface {
	Find(providerID uint) (*store.Provider, error)
}

// Params is the wiring for the Web Service.
type Params struct {
	Logger       *zap.Logger
	Aggregator   Aggregator
	Finder       ProviderFinder
	ProviderDeps providers.Dependencies
	// PendingJobs reports the refresh backlog for /stats.
	PendingJobs func() (int, error)
	AdminToken  string
}

type service struct {
	logger      *zap.Logger
	aggregator  Aggregator
	finder      ProviderFinder
	deps        providers.Dependencies
	pendingJobs func() (int, error)
	adminToken  string
}

// New creates a new restful Web Service serving the aggregated feed,
// the OAuth authorization callback, and worker information.
func New(params Params) http.Handler {
	s := &service{
		logger:      params.Logger,
		aggregator:  params.Aggregator,
		finder:      params.Finder,
		deps:        params.ProviderDeps,
		pendingJobs: params.PendingJobs,
		adminToken:  params.AdminToken,
	}

	router := chi.NewRouter()

	// setup middleware
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.DefaultCompress)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.Get("/feed", s.getFeed)
	router.Get("/authorise", s.getAuthorise)
	router.Get("/stats", s.getStats)

	return router
}

func (s *service) getFeed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("socialfeedclearcache") == "1" {
		if s.adminToken == "" || r.Header.Get(adminTokenHeader) != s.adminToken {
			http.Error(w, "invalid admin token", http.StatusForbidden)
			return
		}

		err := s.aggregator.ClearAllCaches()
		if err != nil {
			s.logger.Error("failure clearing feed caches", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	opts := aggregator.Options{
		Flush: query.Get("flush") == "1",
	}

	posts, err := s.aggregator.Aggregate(r.Context(), opts)
	if err != nil {
		s.logger.Error("failure aggregating feeds", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, posts)
}

// getAuthorise completes a provider's OAuth authorization-code flow.
// Any failure surfaces as a plain 500 with the message as body, so the
// administrator driving the flow sees what went wrong.
func (s *service) getAuthorise(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	err := s.authorise(r.Context(), query.Get("type"), query.Get("provider"), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.PlainText(w, r, "authorisation successful")
}

func (s *service) authorise(
	ctx context.Context, providerType, providerParam string, query url.Values,
) error {
	providerID, err := strconv.ParseUint(providerParam, 10, 32)
	if err != nil {
		return &feed.ValidationError{Message: "no valid 'provider' param provided"}
	}

	record, err := s.finder.Find(uint(providerID))
	if err != nil {
		return &feed.ValidationError{Message: "provider not found"}
	}

	if string(record.Type) != providerType {
		return &feed.ValidationError{Message: "'type' param does not match the provider type"}
	}

	provider, err := providers.New(s.deps, record)
	if err != nil {
		return err
	}

	finalizer, ok := provider.(providers.AuthorizationFinalizer)
	if !ok {
		return &feed.ValidationError{
			Message: "provider type does not support authorisation",
		}
	}

	return finalizer.FinalizeAuthorization(ctx, query)
}

type statsResponse struct {
	Available          bool      `json:"available"`
	BootedAt           time.Time `json:"booted_at"`
	PendingRefreshJobs int       `json:"pending_refresh_jobs"`
}

func (s *service) getStats(w http.ResponseWriter, r *http.Request) {
	pending, err := s.pendingJobs()
	if err != nil {
		s.logger.Error("failure counting pending refresh jobs", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, statsResponse{
		Available:          true,
		BootedAt:           time.Unix(metrics.Uptime.Value(), 0).UTC(),
		PendingRefreshJobs: pending,
	})
}
