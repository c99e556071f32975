package service

import (
	"context"
	"errors"
	"strings"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/models"

	"github.com/rs/zerolog"
)

type ProfileService struct {
	store  domain.UserStore
	logger *zerolog.Logger
}

var _ domain.ProfileService = (*ProfileService)(nil)

func NewProfileService(store domain.UserStore, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger}
}

// Get returns the stored profile, or an empty one when the customer has no
// users document yet.
func (s *ProfileService) Get(ctx context.Context, customerID string) (*models.UserProfile, error) {
	profile, err := s.store.GetProfile(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return &models.UserProfile{}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, customerID string, update models.ProfileUpdate) error {
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	if err := validateStruct(update); err != nil {
		return err
	}
	return s.store.UpdateProfile(ctx, customerID, update)
}

// DisplayName is the customer's full name, or "Customer" when it cannot be
// resolved.
func (s *ProfileService) DisplayName(ctx context.Context, customerID string) string {
	if customerID == "" {
		return models.DefaultCustomerName
	}
	profile, err := s.store.GetProfile(ctx, customerID)
	if err != nil {
		s.logLookup(ctx, customerID, err)
		return models.DefaultCustomerName
	}
	if name := profile.FullName(); name != "" {
		return name
	}
	return models.DefaultCustomerName
}

// LegacyName returns the single-field name written by older sign-up flows,
// or "" when there is none.
func (s *ProfileService) LegacyName(ctx context.Context, customerID string) string {
	if customerID == "" {
		return ""
	}
	profile, err := s.store.GetProfile(ctx, customerID)
	if err != nil {
		s.logLookup(ctx, customerID, err)
		return ""
	}
	return profile.Name
}

func (s *ProfileService) logLookup(ctx context.Context, customerID string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	logging.Ctx(ctx, s.logger).Warn().Err(err).Str("customer_id", customerID).Msg("customer name lookup error")
}
