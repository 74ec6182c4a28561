package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/dairyos/internal/billing/domain"
	"github.com/smallbiznis/dairyos/internal/config"
	consumptiondomain "github.com/smallbiznis/dairyos/internal/consumption/domain"
	paymentdomain "github.com/smallbiznis/dairyos/internal/payment/domain"
	pricedomain "github.com/smallbiznis/dairyos/internal/pricecatalog/domain"
	recondomain "github.com/smallbiznis/dairyos/internal/reconciliation/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite and mysql deployments are local or single-node; the
		// model definitions carry the same constraints as the SQL.
		return conn.AutoMigrate(
			&pricedomain.Customer{},
			&pricedomain.CustomerPrice{},
			&consumptiondomain.Entry{},
			&consumptiondomain.Audit{},
			&billingdomain.Bill{},
			&paymentdomain.Payment{},
			&recondomain.Report{},
		)
	}),
)
