package app

import (
	"context"

	"quiz-score-service/internal/domain"
)

// ProfileService fronts participant profile operations.
type ProfileService struct {
	participants ParticipantRepository
}

func NewProfileService(participants ParticipantRepository) *ProfileService {
	return &ProfileService{participants: participants}
}

// Create registers a participant with a zero total and the default level.
// The address is normalized to lowercase before storage and comparison.
func (s *ProfileService) Create(ctx context.Context, address, displayName, imageURL string) (domain.Participant, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Participant{}, err
	}
	if err := domain.ValidateDisplayName(displayName); err != nil {
		return domain.Participant{}, err
	}
	if imageURL != "" {
		if err := domain.ValidateImageURL(imageURL); err != nil {
			return domain.Participant{}, err
		}
	}

	p := domain.Participant{
		Address:     addr,
		DisplayName: displayName,
		ImageURL:    imageURL,
		TotalScore:  0,
		Level:       domain.DefaultLevel,
	}
	if err := s.participants.Create(ctx, &p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, address string) (domain.Participant, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Participant{}, err
	}
	return s.participants.Get(ctx, addr)
}

// Update applies a partial profile edit. Only name and image are editable;
// any supplied field is re-validated.
func (s *ProfileService) Update(ctx context.Context, address string, displayName, imageURL *string) (domain.Participant, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Participant{}, err
	}
	if displayName != nil {
		if err := domain.ValidateDisplayName(*displayName); err != nil {
			return domain.Participant{}, err
		}
	}
	if imageURL != nil && *imageURL != "" {
		if err := domain.ValidateImageURL(*imageURL); err != nil {
			return domain.Participant{}, err
		}
	}
	return s.participants.UpdateProfile(ctx, addr, displayName, imageURL)
}
