package pricecatalog

import (
	"github.com/smallbiznis/dairyos/internal/pricecatalog/repository"
	"github.com/smallbiznis/dairyos/internal/pricecatalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricecatalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
