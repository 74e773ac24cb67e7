package credential

import (
	"context"

	authmw "votebooth/pkg/platform/middleware/auth"
)

// Authenticate adapts Verify to the stage middleware.
func (s *Service) Authenticate(ctx context.Context, token, purpose string) (*authmw.Principal, error) {
	v, err := s.Verify(ctx, token, Purpose(purpose))
	if err != nil {
		return nil, err
	}
	return &authmw.Principal{
		VoterID:      v.Subject,
		CredentialID: v.ID,
		Purpose:      string(v.Purpose),
		ExpiresAt:    v.ExpiresAt,
	}, nil
}
