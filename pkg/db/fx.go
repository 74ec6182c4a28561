package db

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/dairyos/internal/config"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

var Module = fx.Module("db",
	fx.Provide(Open),
)
