package organization

import (
	"github.com/smallbiznis/notewall/internal/organization/coordinator"
	"github.com/smallbiznis/notewall/internal/organization/detailcache"
	"github.com/smallbiznis/notewall/internal/organization/repository"
	"github.com/smallbiznis/notewall/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewMembershipResolver),
	fx.Provide(service.NewRosterBuilder),
	fx.Provide(service.NewDetailLoader),
	fx.Provide(service.NewNoteFeed),
	fx.Provide(service.NewChartProjector),
	fx.Provide(detailcache.NewStore),
	fx.Provide(detailcache.NewFactory),
	fx.Provide(coordinator.NewRegistry),
	fx.Invoke(coordinator.RunSweeper),
)
