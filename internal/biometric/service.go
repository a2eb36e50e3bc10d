// Package biometric implements the registration and authentication flows on
// top of a descriptor store and a face descriptor extractor.
package biometric

import (
	"context"
	"errors"
	"math"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/facematch"
	"github.com/kozaktomas/face-auth/internal/fingerprint"
	"github.com/kozaktomas/face-auth/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyImage is returned when the uploaded image has no bytes.
	ErrEmptyImage = errors.New("empty image")
	// ErrInvalidName is returned when the display name is blank after normalization.
	ErrInvalidName = errors.New("display name is empty")
	// ErrNoUsersEnrolled is returned by Authenticate when the store is empty.
	ErrNoUsersEnrolled = errors.New("no users enrolled")
)

// Store is the descriptor store used by the flows.
type Store interface {
	database.DescriptorLoader
	database.DescriptorWriter
	FindNearest(ctx context.Context, candidate database.Descriptor, tolerance float64) (facematch.Result, error)
}

// Extractor turns an image into exactly one face descriptor.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (database.Descriptor, error)
}

// Service runs registration and authentication.
type Service struct {
	store     Store
	extractor Extractor
	matcher   *facematch.Matcher
	log       zerolog.Logger
}

// NewService creates a service.
func NewService(store Store, extractor Extractor, matcher *facematch.Matcher, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		matcher:   matcher,
		log:       log.With().Str("component", "biometric").Logger(),
	}
}

// RegisterInput is a registration request.
type RegisterInput struct {
	Name  string
	Level int
	Image []byte
}

// Registration is the persisted identity of a newly registered user.
type Registration struct {
	Identity database.Identity
	// Confirmed is set when the confirmation query found a match for the
	// stored descriptor.
	Confirmed bool
	// Distance to that match; zero when unconfirmed.
	Distance float64
}

// Register extracts the descriptor of the single face in the image, stores
// it, and confirms the new record through the matcher.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	reg, err := s.register(ctx, in)
	metrics.RegistrationsTotal.WithLabelValues(resultLabel(err)).Inc()
	return reg, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*Registration, error) {
	if len(in.Image) == 0 {
		return nil, ErrEmptyImage
	}
	name := facematch.NormalizeDisplayName(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	descriptor, err := s.extract(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Save(ctx, name, in.Level, descriptor)
	if err != nil {
		return nil, err
	}

	reg := &Registration{
		Identity: database.Identity{ID: id, DisplayName: name, AccessLevel: in.Level},
	}
	s.confirm(ctx, reg, descriptor)

	s.log.Info().Int64("user_id", id).Int("access_level", in.Level).Msg("user registered")
	return reg, nil
}

// confirm re-queries the store for the saved descriptor. The record is
// already persisted, so a failed confirmation is logged and never undoes it.
func (s *Service) confirm(ctx context.Context, reg *Registration, descriptor database.Descriptor) {
	id := reg.Identity.ID
	result, err := s.store.FindNearest(ctx, descriptor, s.matcher.Tolerance())
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", id).Msg("could not confirm registration")
		return
	}
	m, ok := facematch.AsMatched(result)
	if !ok {
		s.log.Error().Int64("user_id", id).Msg("registered user not found by confirmation query")
		return
	}
	reg.Confirmed = true
	reg.Distance = m.Distance
	if m.Identity.ID != id {
		s.log.Warn().
			Int64("user_id", id).
			Int64("matched_id", m.Identity.ID).
			Float64("distance", m.Distance).
			Msg("registered face already matches an earlier user")
	}
}

// Authenticate identifies the single face in image among enrolled users.
// It returns ErrNoUsersEnrolled before extraction when the store is empty.
func (s *Service) Authenticate(ctx context.Context, image []byte) (facematch.Result, error) {
	result, err := s.authenticate(ctx, image)

	label := resultLabel(err)
	if err == nil {
		if m, ok := facematch.AsMatched(result); ok {
			metrics.MatchDistance.Observe(m.Distance)
		} else {
			label = metrics.ResultNotRecognized
			if nf, ok := result.(facematch.NotFound); ok && !math.IsInf(nf.BestDistance, 1) {
				metrics.MatchDistance.Observe(nf.BestDistance)
			}
		}
	}
	metrics.AuthenticationsTotal.WithLabelValues(label).Inc()
	return result, err
}

func (s *Service) authenticate(ctx context.Context, image []byte) (facematch.Result, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	stored, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNoUsersEnrolled
	}

	descriptor, err := s.extract(ctx, image)
	if err != nil {
		return nil, err
	}
	return s.matcher.Match(descriptor, stored), nil
}

// Users lists every enrolled identity ordered by id.
func (s *Service) Users(ctx context.Context) ([]database.Identity, error) {
	stored, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]database.Identity, 0, len(stored))
	for _, sd := range stored {
		users = append(users, sd.Identity)
	}
	return users, nil
}

func (s *Service) extract(ctx context.Context, image []byte) (database.Descriptor, error) {
	descriptor, err := s.extractor.Extract(ctx, image)
	if err != nil {
		if reason, ok := fingerprint.ReasonOf(err); ok {
			metrics.ExtractionFailuresTotal.WithLabelValues(reason).Inc()
			s.log.Info().Str("reason", reason).Msg("face extraction failed")
		}
		return nil, err
	}
	return descriptor, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, fingerprint.ErrExtraction):
		return metrics.ResultNoFace
	case errors.Is(err, ErrNoUsersEnrolled):
		return metrics.ResultNoUsers
	case database.IsStorageError(err):
		return metrics.ResultStorageError
	case errors.Is(err, fingerprint.ErrEmbeddingUnavailable):
		return metrics.ResultUpstreamError
	default:
		return metrics.ResultInvalidInput
	}
}
