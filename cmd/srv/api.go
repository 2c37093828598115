package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ecosteps/backend/internal/middleware"
	"github.com/ecosteps/backend/pkg/router"

	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(ct *cli.Context) error {
	server.loadConfig(ct)
	server.loadLogger()
	server.loadDatabase()
	server.loadStorage()
	server.loadRedis()
	server.loadRepos()
	server.loadDomains()
	server.loadRouter()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.configs.ApiServer.Port),
		Handler: middleware.Cors(s.router.Handler()),
	}

	log.Printf("Starting server on port: %s\n", s.configs.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}
	log.Printf("server stop")
	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.db, *s.configs, s.logger)
	s.router.AddCloser(middleware.Logger())

	// Auth API
	router.POST(s.router, "/register", s.authDomain.Register)
	router.POST(s.router, "/login", s.authDomain.Login)
	router.POST(s.router, "/refresh", s.authDomain.Refresh)

	// These following APIs need authentication with Access Token.
	authRouter := s.router.Branch()
	authVerifier := middleware.NewAuthVerifier().WithAccessToken()
	authRouter.Before(authVerifier.Middleware())
	{
		// User API
		router.GET(authRouter, "/getMe", s.userDomain.GetMe)
		router.GET(authRouter, "/getUser", s.userDomain.GetUser)
		router.GET(authRouter, "/searchUsers", s.userDomain.Search)
		router.POST(authRouter, "/setAboutMe", s.userDomain.SetAboutMe)
		router.POST(authRouter, "/uploadAvatar", s.userDomain.UploadAvatar)
		router.POST(authRouter, "/deleteAvatar", s.userDomain.DeleteAvatar)

		// Friendship API
		router.POST(authRouter, "/sendFriendRequest", s.friendshipDomain.SendRequest)
		router.POST(authRouter, "/cancelFriendRequest", s.friendshipDomain.CancelRequest)
		router.POST(authRouter, "/declineFriendRequest", s.friendshipDomain.DeclineRequest)
		router.POST(authRouter, "/acceptFriendRequest", s.friendshipDomain.AcceptRequest)
		router.POST(authRouter, "/unfriend", s.friendshipDomain.Unfriend)
		router.GET(authRouter, "/getFriends", s.friendshipDomain.GetFriends)
		router.GET(authRouter, "/getFriendRequests", s.friendshipDomain.GetRequests)
		router.GET(authRouter, "/getRecommendations", s.recommendationDomain.Get)

		// Activity API
		router.POST(authRouter, "/createActivity", s.activityDomain.Create)
		router.GET(authRouter, "/getActivity", s.activityDomain.Get)
		router.POST(authRouter, "/updateActivity", s.activityDomain.Update)
		router.POST(authRouter, "/deleteActivity", s.activityDomain.Delete)
		router.GET(authRouter, "/getFeed", s.activityDomain.GetFeed)
	}

	// Public API.
	router.GET(s.router, "/getActivityTypes", s.activityDomain.GetTypes)
}
