package wallet

import (
	"gorm.io/gorm"

	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/types"
)

// WalletRecord is the persisted form of one client's wallet: a single
// row holding the serialized state blob. The storage layer knows
// nothing about the blob's contents; serialization is owned by the
// wallet state types below.
type WalletRecord struct {
	gorm.Model `json:"-"`
	ClientID   string `gorm:"uniqueIndex" json:"client_id"`
	State      []byte `json:"-"`
}

// walletState is the complete serializable session state: the ledger
// snapshot, non-terminal pending orders, and the capped journal.
type walletState struct {
	Ledger  *ledger.Snapshot     `json:"ledger"`
	Orders  []types.PendingOrder `json:"orders,omitempty"`
	Journal []types.JournalEntry `json:"journal,omitempty"`
}
