package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// Open connects to the configured database and applies pool settings
// and the prometheus collector.
func Open(cfg Params) (*gorm.DB, error) {
	dialect, err := Dialect(cfg.Config)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialect, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Config.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.Config.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Config.DBConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Config.DBConnMaxIdleTime) * time.Second)

	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.Config.DBName,
		RefreshInterval: 15,
	})); err != nil {
		cfg.Log.Warn("failed to register gorm prometheus collector", zap.Error(err))
	}

	cfg.Log.Info("database connected",
		zap.String("type", cfg.Config.DBType),
		zap.String("name", cfg.Config.DBName),
	)
	return conn, nil
}
