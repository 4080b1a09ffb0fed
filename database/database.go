package database

import (
	"adgate/config"
	"adgate/models"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// seedApps is the initial mini-application catalog, inserted once at first
// boot. Existing rows are never overwritten so admin-adjusted limits survive
// restarts.
var seedApps = []models.AppSetting{
	{AppKey: "douyin_tool", Category: "实用工具", Title: "抖音无水印下载助手", FreeLimit: 1, Enabled: true},
	{AppKey: "content_idea", Category: "实用工具", Title: "爆款选题生成器", FreeLimit: 1, Enabled: true},
	{AppKey: "chuangye", Category: "人格测评", Title: "2026 打工型还是创业型", FreeLimit: 1, Enabled: true},
	{AppKey: "city_persona", Category: "人格测评", Title: "你的城市人格", FreeLimit: 1, Enabled: true},
}

// InitDB opens the GORM SQLite database according to config.Settings, applies
// connection pool settings and optional SQLite PRAGMAs, migrates the
// entitlement tables and seeds the application catalog, then assigns the
// resulting *gorm.DB to the package DB.
func InitDB() error {
	var err error

	logLevel := logger.Silent
	if config.Settings.LogLevel == "DEBUG" {
		logLevel = logger.Info
	}

	logWriter := log.Writer()

	dsn := buildSQLiteDSN(config.Settings.DatabaseURL, config.Settings)
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: sqliteMetricsLogger{inner: logger.New(
			log.New(logWriter, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel: logLevel,
			},
		)},
	})
	if err != nil {
		return err
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	pool := currentSQLitePoolConfig(config.Settings)
	sqlDB.SetMaxIdleConns(pool.maxIdleConns)
	sqlDB.SetMaxOpenConns(pool.maxOpenConns)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.maxIdleSec) * time.Second)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.maxLifeSec) * time.Second)

	// Apply PRAGMAs again as a best-effort startup initialization (useful for
	// existing DB files). Connection URL parameters ensure PRAGMAs are applied
	// for new connections too.
	if config.Settings.SQLitePragmasEnabled {
		if config.Settings.SQLiteBusyTimeoutMS > 0 {
			DB.Exec("PRAGMA busy_timeout = ?", config.Settings.SQLiteBusyTimeoutMS)
		}
		if journalMode := normalizeSQLiteJournalMode(config.Settings.SQLiteJournalMode); journalMode != "" {
			DB.Exec("PRAGMA journal_mode = " + journalMode)
		}
		if synchronous := normalizeSQLiteSynchronous(config.Settings.SQLiteSynchronous); synchronous != "" {
			DB.Exec("PRAGMA synchronous = " + synchronous)
		}
		if config.Settings.SQLiteForeignKeys {
			DB.Exec("PRAGMA foreign_keys = ON")
		} else {
			DB.Exec("PRAGMA foreign_keys = OFF")
		}
	}

	if err := Migrate(DB); err != nil {
		return err
	}

	log.Println("Database initialized successfully")
	return nil
}

// Migrate runs automigrations and seeds static rows. Exposed separately so
// tests can run it against their own database handle.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.AppSetting{},
		&models.QuotaRecord{},
		&models.AdTicket{},
		&models.AdEvent{},
		&models.ErrorLog{},
		&models.Metric{},
	)
	if err != nil {
		return err
	}

	// INSERT OR IGNORE semantics for the seed catalog and counters
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seedApps).Error; err != nil {
		return err
	}
	pageViews := models.Metric{Key: MetricPageViews, Value: 0}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pageViews).Error
}

// CloseDB closes the database connection and releases resources
func CloseDB() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	log.Println("Closing database connection...")
	return sqlDB.Close()
}
