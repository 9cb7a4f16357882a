// Package database bootstraps the gorm connection and schema.
package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/papertrade/papertrade-api/internal/wallet"
)

// NewDatabase opens the sqlite database at path and migrates the
// wallet schema.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&wallet.WalletRecord{}); err != nil {
		return nil, err
	}

	return db, nil
}
