package main

import (
	"github.com/ecosteps/backend/migration"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(ct *cli.Context) error {
	server.loadConfig(ct)
	server.loadLogger()
	server.loadDatabase()

	return migration.AutoMigrate(s.ctx)
}
