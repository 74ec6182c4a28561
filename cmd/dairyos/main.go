package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/dairyos/internal/billing"
	"github.com/smallbiznis/dairyos/internal/clock"
	"github.com/smallbiznis/dairyos/internal/config"
	"github.com/smallbiznis/dairyos/internal/consumption"
	"github.com/smallbiznis/dairyos/internal/locks"
	"github.com/smallbiznis/dairyos/internal/migration"
	"github.com/smallbiznis/dairyos/internal/observability"
	"github.com/smallbiznis/dairyos/internal/payment"
	"github.com/smallbiznis/dairyos/internal/pricecatalog"
	"github.com/smallbiznis/dairyos/internal/reconciliation"
	"github.com/smallbiznis/dairyos/internal/scheduler"
	"github.com/smallbiznis/dairyos/internal/server"
	"github.com/smallbiznis/dairyos/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		locks.Module,
		migration.Module,

		// Domain services
		pricecatalog.Module,
		consumption.Module,
		billing.Module,
		payment.Module,
		reconciliation.Module,

		// Outer surfaces
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
