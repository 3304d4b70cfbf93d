// Package core is the care application service. It keeps the local entity
// store and the remote document and blob stores in step: every mutation is
// sent to the remote stores first and dispatched locally only once the
// remote call succeeded.
package core

import (
	"carecore/internal/assets"
	"carecore/internal/blob"
	"carecore/internal/cascade"
	"carecore/internal/docstore"
	"carecore/internal/logging"
	"carecore/internal/state"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service coordinates the local store with the remote backends.
type Service struct {
	local       *state.Store
	docs        docstore.Store
	blobs       blob.Store
	uploader    assets.Uploader
	registry    *cascade.Registry
	logger      *zap.Logger
	metrics     *Metrics
	now         func() time.Time
	newID       func() string
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the error reporting boundary.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new entity ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithRegistry replaces the default ownership graph used by cascades.
func WithRegistry(r *cascade.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithAssetConcurrency bounds parallel asset deletions.
func WithAssetConcurrency(n int) Option { return func(s *Service) { s.concurrency = n } }

// WithAssetURLs sets the public URL prefix used when the blob store cannot
// sign URLs, and the expiry of signed URLs.
func WithAssetURLs(publicBaseURL string, expiry time.Duration) Option {
	return func(s *Service) {
		s.uploader.PublicBaseURL = publicBaseURL
		s.uploader.URLExpiry = expiry
	}
}

// NewService builds a Service over local, docs and blobs. A nil local store
// is replaced by an empty one.
func NewService(local *state.Store, docs docstore.Store, blobs blob.Store, opts ...Option) *Service {
	if local == nil {
		local = state.New()
	}
	s := &Service{
		local:       local,
		docs:        docs,
		blobs:       blobs,
		uploader:    assets.Uploader{Store: blobs},
		registry:    cascade.DefaultRegistry(),
		logger:      zap.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		concurrency: cascade.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the local store.
func (s *Service) State() *state.Store { return s.local }

// Docs returns the remote document store.
func (s *Service) Docs() docstore.Store { return s.docs }

// Blobs returns the remote blob store.
func (s *Service) Blobs() blob.Store { return s.blobs }

// report is the single place remote failures surface: every exported
// operation defers it so the outcome is logged and counted once.
func (s *Service) report(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Error("operation failed", zap.String("operation", op), zap.Error(err))
		return
	}
	s.logger.Debug("operation complete", zap.String("operation", op), zap.Duration("elapsed", time.Since(start)))
}
