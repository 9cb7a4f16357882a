package ledger

import (
	"github.com/papertrade/papertrade-api/internal/types"
)

// Snapshot is the serializable subset of ledger state. It is the full
// contract with the persistence layer: restoring a snapshot into a
// fresh ledger reproduces every load-bearing field.
type Snapshot struct {
	CashBalance    float64              `json:"cash_balance"`
	InitialDeposit float64              `json:"initial_deposit"`
	Holdings       []types.Holding      `json:"holdings"`
	Transactions   []*types.Transaction `json:"transactions"`
	Tier           string               `json:"tier"`
	LastBonusDate  string               `json:"last_bonus_date,omitempty"`
	Slippage       types.SlippageConfig `json:"slippage"`
}

// Snapshot captures the current state. The transaction log is capped to
// the most recent maxTransactions entries (non-positive keeps all).
func (l *Ledger) Snapshot(maxTransactions int) *Snapshot {
	return &Snapshot{
		CashBalance:    l.cash,
		InitialDeposit: l.initialDeposit,
		Holdings:       l.Holdings(),
		Transactions:   l.Transactions(maxTransactions),
		Tier:           l.tier,
		LastBonusDate:  l.lastBonusDate,
		Slippage:       l.slippage,
	}
}

// Restore replaces the ledger state with the snapshot's contents.
func (l *Ledger) Restore(s *Snapshot) {
	l.cash = s.CashBalance
	l.initialDeposit = s.InitialDeposit
	l.holdings = make(map[string]*types.Holding, len(s.Holdings))
	for i := range s.Holdings {
		h := s.Holdings[i]
		l.holdings[h.Symbol] = &h
	}
	l.transactions = make([]*types.Transaction, len(s.Transactions))
	copy(l.transactions, s.Transactions)
	if s.Tier != "" {
		l.tier = s.Tier
	}
	l.lastBonusDate = s.LastBonusDate
	if s.Slippage.Percent > 0 {
		l.slippage = s.Slippage
	}
}
