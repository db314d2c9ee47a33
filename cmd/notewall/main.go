package main

import (
	"github.com/smallbiznis/notewall/internal/clock"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/migration"
	"github.com/smallbiznis/notewall/internal/observability"
	"github.com/smallbiznis/notewall/internal/server"
	"github.com/smallbiznis/notewall/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP boundary, organization aggregation included
		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}
