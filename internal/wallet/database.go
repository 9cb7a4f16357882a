package wallet

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetWallet returns the stored state blob for a client, or nil when the
// client has no wallet yet.
func (d *Database) GetWallet(clientID string) ([]byte, error) {
	var record WalletRecord
	if err := d.db.Where("client_id = ?", clientID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.State, nil
}

// SaveWallet upserts the state blob for a client.
func (d *Database) SaveWallet(clientID string, state []byte) error {
	var record WalletRecord
	err := d.db.Where("client_id = ?", clientID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = WalletRecord{ClientID: clientID, State: state}
		return d.db.Create(&record).Error
	}
	if err != nil {
		return err
	}

	record.State = state
	return d.db.Save(&record).Error
}

// DeleteWallet removes a client's stored wallet.
func (d *Database) DeleteWallet(clientID string) error {
	return d.db.Where("client_id = ?", clientID).Delete(&WalletRecord{}).Error
}
