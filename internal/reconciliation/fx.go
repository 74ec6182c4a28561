package reconciliation

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/dairyos/internal/reconciliation/repository"
	"github.com/smallbiznis/dairyos/internal/reconciliation/service"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
