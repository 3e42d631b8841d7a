package resource

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"transcode-jobs/pkg/assert"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/logger"
	"transcode-jobs/pkg/manager"
)

var (
	mysqlResourceOnce sync.Once
	mysqlSingleton    *MySQLResource
)

// MySQLResource manages the lifecycle of the shared gorm connection used by
// the job archive. Disabled deployments leave MainDB nil.
type MySQLResource struct {
	db *gorm.DB
}

// DefaultMySQLResource returns the global MySQL resource instance.
func DefaultMySQLResource() *MySQLResource {
	assert.NotCircular()
	mysqlResourceOnce.Do(func() {
		mysqlSingleton = &MySQLResource{}
	})
	assert.NotNil(mysqlSingleton)
	return mysqlSingleton
}

// MustOpen establishes the database connection using global configuration.
func (r *MySQLResource) MustOpen() {
	if r.db != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MySQLResource")
	}
	if !cfg.Database.Enabled {
		logger.Warnf("database disabled, job archive will not persist")
		return
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect mysql: %v", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to access mysql pool: %v", err))
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	r.db = db
	logger.Infof("mysql resource initialized host=%s database=%s", cfg.Database.Host, cfg.Database.Database)
}

// MainDB exposes the gorm handle, or nil when the archive is disabled.
func (r *MySQLResource) MainDB() *gorm.DB {
	return r.db
}

// Close releases pooled connections.
func (r *MySQLResource) Close() {
	if r.db == nil {
		return
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// MySQLResourcePlugin wires the resource into the manager.
type MySQLResourcePlugin struct{}

func (p *MySQLResourcePlugin) Name() string { return "mysql" }

func (p *MySQLResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMySQLResource()
}
