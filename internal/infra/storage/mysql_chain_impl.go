package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MysqlChainStorage struct {
	mysqlClient *gorm.DB
}

// NewMySQLClient opens the archive database, applies the pool settings and
// migrates the chain table.
func NewMySQLClient(c *configs.ArchiveConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(c.DatabaseConfig.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(c.DatabaseOptionConfig.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	opt := c.DatabaseOptionConfig
	sqlDB.SetMaxIdleConns(opt.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opt.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opt.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opt.ConnMaxIdleTime)

	if err := db.AutoMigrate(&model.ChainRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chain table: %w", err)
	}
	return db, nil
}

func NewMysqlChainStorage(mysqlClient *gorm.DB) MySQLChainStorageIface {
	return &MysqlChainStorage{mysqlClient: mysqlClient}
}

var _ MySQLChainStorageIface = (*MysqlChainStorage)(nil)

func (s *MysqlChainStorage) SaveChainToDB(ctx context.Context, rec *model.ChainRecord) error {
	tx := s.mysqlClient.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := tx.Create(rec).Error; err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "Error 1062") {
			return fmt.Errorf("chain %s already archived: %w", rec.ID, err)
		}
		return fmt.Errorf("failed to save chain to mysql: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *MysqlChainStorage) GetChainFromDB(ctx context.Context, id string) (*model.ChainRecord, error) {
	rec := &model.ChainRecord{}
	if err := s.mysqlClient.WithContext(ctx).First(rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chain from mysql: %w", err)
	}
	return rec, nil
}

func (s *MysqlChainStorage) ListRecentChains(ctx context.Context, limit int) ([]*model.ChainRecord, error) {
	var recs []*model.ChainRecord
	if err := s.mysqlClient.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list chains from mysql: %w", err)
	}
	return recs, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
