package main

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/ecosteps/backend/config"
	"github.com/ecosteps/backend/internal/domain"
	"github.com/ecosteps/backend/internal/repository"
	"github.com/ecosteps/backend/pkg/logger"
	"github.com/ecosteps/backend/pkg/router"
	"github.com/ecosteps/backend/pkg/storage"
	"github.com/ecosteps/backend/pkg/xcontext"
	"github.com/ecosteps/backend/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type srv struct {
	app *cli.App
	ctx context.Context

	configs *config.Configs
	logger  logger.Logger

	db          *gorm.DB
	storage     storage.Storage
	redisClient xredis.Client
	idGenerator *snowflake.Node

	userRepo         repository.UserRepository
	friendshipRepo   repository.FriendshipRepository
	activityRepo     repository.ActivityRepository
	refreshTokenRepo repository.RefreshTokenRepository

	authDomain           domain.AuthDomain
	userDomain           domain.UserDomain
	friendshipDomain     domain.FriendshipDomain
	recommendationDomain domain.RecommendationDomain
	activityDomain       domain.ActivityDomain

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(ct *cli.Context) {
	configs, err := config.Load(ct.String("config"))
	if err != nil {
		panic(err)
	}

	s.configs = configs
	s.ctx = xcontext.WithConfigs(context.Background(), *configs)
}

func (s *srv) loadLogger() {
	s.logger = logger.NewLogger(logger.ParseLevel(s.configs.LogLevel))
	s.ctx = xcontext.WithLogger(s.ctx, s.logger)
}

func (s *srv) loadDatabase() {
	var err error
	s.db, err = gorm.Open(mysql.Open(s.configs.Database.ConnectionString()), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
	})
	if err != nil {
		panic(err)
	}

	s.ctx = xcontext.WithDB(s.ctx, s.db)
}

func (s *srv) loadStorage() {
	s.storage = storage.NewS3Storage(s.configs.Storage)
}

// loadRedis is optional. Without a redis address the repositories and
// domains fall back to uncached reads.
func (s *srv) loadRedis() {
	if s.configs.Redis.Addr == "" {
		return
	}

	redisClient, err := xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}

	s.redisClient = redisClient
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository(s.redisClient)
	s.friendshipRepo = repository.NewFriendshipRepository()
	s.activityRepo = repository.NewActivityRepository()
	s.refreshTokenRepo = repository.NewRefreshTokenRepository()
}

func (s *srv) loadDomains() {
	var err error
	s.idGenerator, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	s.authDomain = domain.NewAuthDomain(s.userRepo, s.refreshTokenRepo)
	s.userDomain = domain.NewUserDomain(s.userRepo, s.friendshipRepo, s.activityRepo, s.storage)
	s.friendshipDomain = domain.NewFriendshipDomain(s.userRepo, s.friendshipRepo, s.redisClient)
	s.recommendationDomain = domain.NewRecommendationDomain(s.userRepo, s.friendshipRepo, s.redisClient)
	s.activityDomain = domain.NewActivityDomain(
		s.activityRepo, s.userRepo, s.friendshipRepo, s.storage, s.idGenerator)
}
