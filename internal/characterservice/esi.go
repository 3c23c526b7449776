package characterservice

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ErikKalkoken/evefit/internal/app"
)

// FetchSkills returns the current skills of a character from ESI.
func (s *CharacterService) FetchSkills(ctx context.Context, characterID int32) (*app.CharacterSkills, error) {
	t, err := s.GetCharacterToken(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return s.esi.FetchSkills(ctx, t)
}

// FetchSecurityStatus returns the public information of a character from ESI.
func (s *CharacterService) FetchSecurityStatus(ctx context.Context, characterID int32) (*app.CharacterPublicInfo, error) {
	t, err := s.GetCharacterToken(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return s.esi.FetchSecurityStatus(ctx, t)
}

// ListFittings returns the fittings of a character from ESI.
func (s *CharacterService) ListFittings(ctx context.Context, characterID int32) ([]app.Fitting, error) {
	t, err := s.GetCharacterToken(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return s.esi.ListFittings(ctx, t)
}

// CreateFitting saves a new fitting for a character on ESI and returns its ID.
func (s *CharacterService) CreateFitting(ctx context.Context, characterID int32, f app.Fitting) (int32, error) {
	t, err := s.GetCharacterToken(ctx, characterID)
	if err != nil {
		return 0, err
	}
	return s.esi.CreateFitting(ctx, t, f)
}

// DeleteFitting deletes a fitting of a character on ESI.
func (s *CharacterService) DeleteFitting(ctx context.Context, characterID int32, fittingID int32) error {
	t, err := s.GetCharacterToken(ctx, characterID)
	if err != nil {
		return err
	}
	return s.esi.DeleteFitting(ctx, t, fittingID)
}

// FetchOverview returns skills and public information of a character.
// Both are fetched concurrently.
func (s *CharacterService) FetchOverview(ctx context.Context, characterID int32) (*app.CharacterOverview, error) {
	t, err := s.GetCharacterToken(ctx, characterID)
	if err != nil {
		return nil, err
	}
	o := &app.CharacterOverview{CharacterID: characterID}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		x, err := s.esi.FetchSkills(ctx, t)
		if err != nil {
			return err
		}
		o.Skills = x
		return nil
	})
	g.Go(func() error {
		x, err := s.esi.FetchSecurityStatus(ctx, t)
		if err != nil {
			return err
		}
		o.Info = x
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return o, nil
}
