package port

import (
	"context"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

type SessionRepository interface {
	// LoadSession returns domain.Idle{} for users never seen before
	LoadSession(ctx context.Context, userID int64) (domain.SessionState, error)

	// SaveSession overwrites the user's current state
	SaveSession(ctx context.Context, userID int64, state domain.SessionState) error
}
