package testutil

import (
	"context"
	"time"

	"github.com/ecosteps/backend/config"
	"github.com/ecosteps/backend/migration"
	"github.com/ecosteps/backend/pkg/authenticator"
	"github.com/ecosteps/backend/pkg/logger"
	"github.com/ecosteps/backend/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	cfg := config.Configs{
		Auth: config.AuthConfigs{
			TokenSecret: "secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: config.Duration{Duration: time.Minute},
			},
			RefreshToken: config.TokenConfigs{
				Name:       "refresh_token",
				Expiration: config.Duration{Duration: time.Minute},
			},
		},
		Storage: config.S3Configs{
			Bucket:    "ecosteps",
			PublicURL: "https://storage.example.com",
		},
		File: config.FileConfigs{
			MaxSize:        2 * 1024 * 1024,
			MaxPerActivity: 6,
			AvatarSizes:    []int{512, 128, 32},
		},
		Activity: config.ActivityConfigs{
			StreakWindow:       config.Duration{Duration: 48 * time.Hour},
			MaxRecommendations: 10,
		},
		Redis: config.RedisConfigs{
			CacheExpiration: config.Duration{Duration: time.Minute},
		},
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.ERROR))
	ctx = xcontext.WithTokenEngine(ctx, authenticator.NewTokenEngine(cfg.Auth.TokenSecret))
	ctx = xcontext.WithDB(ctx, db)

	if err := migration.AutoMigrate(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}
