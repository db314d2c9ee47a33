package migration

import (
	"github.com/smallbiznis/notewall/internal/clock"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"github.com/smallbiznis/notewall/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, repo domain.Repository, cfg config.Config, clk clock.Clock, log *zap.Logger) error {
		if !cfg.DBAutoMigrate && !cfg.SeedDemoData {
			return nil
		}

		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		if cfg.SeedDemoData {
			if err := seed.EnsureDemoData(conn, repo, clk.Now()); err != nil {
				return err
			}
			log.Info("demo data ensured")
		}
		return nil
	}),
)
