package migration

import (
	"context"

	"github.com/ecosteps/backend/internal/entity"
	"github.com/ecosteps/backend/pkg/xcontext"
)

// When this migrator is called, no need to call other migrators.
func AutoMigrate(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&entity.User{},
		&entity.RefreshToken{},
		&entity.FriendRequest{},
		&entity.FriendEdge{},
		&entity.Activity{},
	)
}
