// Package wallet ties the ledger, order book and journal together into
// per-client sessions, persists them through gorm, and exposes the HTTP
// handlers for every wallet operation.
package wallet

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/papertrade/papertrade-api/internal/config"
	"github.com/papertrade/papertrade-api/internal/journal"
	"github.com/papertrade/papertrade-api/internal/ledger"
	"github.com/papertrade/papertrade-api/internal/metrics"
	"github.com/papertrade/papertrade-api/internal/orderbook"
	"github.com/papertrade/papertrade-api/internal/portfolio"
	"github.com/papertrade/papertrade-api/internal/types"
)

// Session is one client's mutual-exclusion domain. Every ledger, order
// book and journal operation for the client runs under its mutex, which
// also makes a full order-check pass one indivisible transaction.
type Session struct {
	mu       sync.Mutex
	clientID string
	ledger   *ledger.Ledger
	book     *orderbook.Book
	journal  *journal.Journal
}

// Service manages wallet sessions and their persistence.
type Service struct {
	db  *Database
	cfg config.WalletConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a wallet service backed by the given database.
func NewService(gormDB *gorm.DB, cfg config.WalletConfig) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// session returns the loaded session for a client, restoring it from
// storage or seeding a fresh wallet on first contact.
func (s *Service) session(clientID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[clientID]; ok {
		return sess, nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sess := &Session{
		clientID: clientID,
		ledger:   ledger.New(s.cfg.DefaultTier, rng),
		book:     nil,
		journal:  journal.New(),
	}
	sess.book = orderbook.NewBook(sess.ledger)

	blob, err := s.db.GetWallet(clientID)
	if err != nil {
		return nil, err
	}
	if blob != nil {
		var state walletState
		if err := json.Unmarshal(blob, &state); err != nil {
			return nil, err
		}
		if state.Ledger != nil {
			sess.ledger.Restore(state.Ledger)
		}
		sess.book.Restore(state.Orders)
		sess.journal.Restore(state.Journal)
	} else if s.cfg.StartingDeposit > 0 {
		if _, err := sess.ledger.Deposit(s.cfg.StartingDeposit); err != nil {
			return nil, err
		}
		s.persist(sess)
	}

	s.sessions[clientID] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return sess, nil
}

// persist writes the session's current state. Persistence is best
// effort: an in-memory mutation that already succeeded is not rolled
// back over a storage failure.
func (s *Service) persist(sess *Session) {
	state := walletState{
		Ledger:  sess.ledger.Snapshot(s.cfg.MaxTransactions),
		Orders:  sess.book.Snapshot(),
		Journal: sess.journal.Snapshot(s.cfg.MaxJournalEntries),
	}
	blob, err := json.Marshal(&state)
	if err != nil {
		log.Error().Err(err).Str("client_id", sess.clientID).Msg("failed to serialize wallet")
		return
	}
	if err := s.db.SaveWallet(sess.clientID, blob); err != nil {
		log.Error().Err(err).Str("client_id", sess.clientID).Msg("failed to persist wallet")
	}
}

// --- Ledger operations ---

// Summary returns the top-level wallet view.
func (s *Service) Summary(clientID string) (*types.WalletSummary, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return &types.WalletSummary{
		ClientID:       clientID,
		CashBalance:    sess.ledger.CashBalance(),
		InitialDeposit: sess.ledger.InitialDeposit(),
		Tier:           sess.ledger.Tier(),
		Slippage:       sess.ledger.Slippage(),
		HoldingCount:   len(sess.ledger.Holdings()),
		LastBonusDate:  sess.ledger.LastBonusDate(),
	}, nil
}

// Deposit adds virtual cash to the wallet.
func (s *Service) Deposit(clientID string, amount float64) (*types.Transaction, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	tx, err := sess.ledger.Deposit(amount)
	if err != nil {
		return nil, err
	}
	s.persist(sess)
	return tx, nil
}

// Buy executes an immediate market buy.
func (s *Service) Buy(clientID, symbol string, notional, price float64) (*types.TradeResult, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	res, err := sess.ledger.Buy(symbol, notional, price)
	if err != nil {
		return nil, err
	}
	metrics.TradesTotal.WithLabelValues(types.SideBuy).Inc()
	s.persist(sess)
	return res, nil
}

// Sell executes an immediate market sell.
func (s *Service) Sell(clientID, symbol string, quantity, price float64) (*types.TradeResult, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	res, err := sess.ledger.Sell(symbol, quantity, price)
	if err != nil {
		return nil, err
	}
	metrics.TradesTotal.WithLabelValues(types.SideSell).Inc()
	s.persist(sess)
	return res, nil
}

// ClaimDailyBonus grants the tier's once-per-day cash bonus.
func (s *Service) ClaimDailyBonus(clientID string) (*types.Transaction, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	tx, err := sess.ledger.ClaimDailyBonus()
	if err != nil {
		return nil, err
	}
	metrics.BonusClaimsTotal.Inc()
	s.persist(sess)
	return tx, nil
}

// Reset wipes the wallet back to the configured starting deposit and
// clears all pending orders and journal entries.
func (s *Service) Reset(clientID string) (*types.WalletSummary, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.ledger.Reset(s.cfg.StartingDeposit)
	sess.book.Restore(nil)
	sess.journal.Restore(nil)
	s.persist(sess)
	sess.mu.Unlock()

	return s.Summary(clientID)
}

// SetSlippage updates the slippage simulation settings.
func (s *Service) SetSlippage(clientID string, enabled bool, percent float64) (types.SlippageConfig, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return types.SlippageConfig{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.ledger.SetSlippage(enabled, percent)
	s.persist(sess)
	return sess.ledger.Slippage(), nil
}

// SetTier changes the account tier (gates the daily bonus amount).
func (s *Service) SetTier(clientID, tier string) (*types.WalletSummary, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.ledger.SetTier(tier)
	s.persist(sess)
	sess.mu.Unlock()

	return s.Summary(clientID)
}

// GetHolding returns the client's position in a symbol.
func (s *Service) GetHolding(clientID, symbol string) (types.Holding, bool, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return types.Holding{}, false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	h, ok := sess.ledger.Holding(symbol)
	return h, ok, nil
}

// Transactions returns the most recent transactions, newest first.
func (s *Service) Transactions(clientID string, limit int) ([]*types.Transaction, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ledger.Transactions(limit), nil
}

// --- Order operations ---

// PlaceLimitOrder places a conditional limit order.
func (s *Service) PlaceLimitOrder(clientID, side, symbol string, amount, targetPrice float64) (*types.PendingOrder, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	o, err := sess.book.PlaceLimitOrder(side, symbol, amount, targetPrice)
	if err != nil {
		return nil, err
	}
	metrics.OrdersPlacedTotal.WithLabelValues(types.OrderLimit).Inc()
	s.persist(sess)
	return o, nil
}

// PlaceStopLoss places a protective sell below the market.
func (s *Service) PlaceStopLoss(clientID, symbol string, quantity, stopPrice float64) (*types.PendingOrder, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	o, err := sess.book.PlaceStopLoss(symbol, quantity, stopPrice)
	if err != nil {
		return nil, err
	}
	metrics.OrdersPlacedTotal.WithLabelValues(types.OrderStopLoss).Inc()
	s.persist(sess)
	return o, nil
}

// PlaceTakeProfit places a protective sell above the market.
func (s *Service) PlaceTakeProfit(clientID, symbol string, quantity, targetPrice float64) (*types.PendingOrder, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	o, err := sess.book.PlaceTakeProfit(symbol, quantity, targetPrice)
	if err != nil {
		return nil, err
	}
	metrics.OrdersPlacedTotal.WithLabelValues(types.OrderTakeProfit).Inc()
	s.persist(sess)
	return o, nil
}

// CancelOrder cancels a pending order.
func (s *Service) CancelOrder(clientID, orderID string) (*types.PendingOrder, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	o, err := sess.book.Cancel(orderID)
	if err != nil {
		return nil, err
	}
	s.persist(sess)
	return o, nil
}

// PendingOrders returns non-terminal orders, optionally filtered by
// symbol.
func (s *Service) PendingOrders(clientID, symbol string) ([]types.PendingOrder, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if symbol != "" {
		return sess.book.PendingForSymbol(symbol), nil
	}
	return sess.book.Pending(), nil
}

// CheckAndExecuteAll runs one trigger-evaluation pass for every loaded
// session against a single price snapshot. Returns the number of orders
// filled.
func (s *Service) CheckAndExecuteAll(prices map[string]float64) int {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	total := 0
	for _, sess := range sessions {
		sess.mu.Lock()
		pendingBefore := len(sess.book.Pending())
		filled := sess.book.CheckAndExecute(prices)
		for _, o := range filled {
			metrics.OrdersFilledTotal.WithLabelValues(o.Kind).Inc()
			metrics.TradesTotal.WithLabelValues(o.Side).Inc()
		}
		if len(filled) > 0 || len(sess.book.Pending()) != pendingBefore {
			s.persist(sess)
		}
		sess.mu.Unlock()
		total += len(filled)
	}
	return total
}

// --- Portfolio queries ---

// PortfolioValue returns cash plus holdings marked to the snapshot.
func (s *Service) PortfolioValue(clientID string, prices map[string]float64) (float64, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return portfolio.Value(sess.ledger, prices), nil
}

// PortfolioMetrics returns the wallet-level valuation.
func (s *Service) PortfolioMetrics(clientID string, prices map[string]float64) (*types.PortfolioMetrics, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return portfolio.Metrics(sess.ledger, prices), nil
}

// HoldingsWithValue returns every holding marked to the snapshot.
func (s *Service) HoldingsWithValue(clientID string, prices map[string]float64) ([]types.HoldingValue, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return portfolio.HoldingsWithValue(sess.ledger, prices), nil
}

// --- Journal operations ---

// AddJournalNote attaches an annotation to a transaction by reference.
func (s *Service) AddJournalNote(clientID, transactionID, text string, tags []string) (*types.JournalEntry, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	entry := sess.journal.AddNote(transactionID, text, tags)
	s.persist(sess)
	return entry, nil
}

// UpdateJournalNote edits an existing annotation.
func (s *Service) UpdateJournalNote(clientID, entryID, text string, tags []string) (*types.JournalEntry, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	entry, err := sess.journal.UpdateNote(entryID, text, tags)
	if err != nil {
		return nil, err
	}
	s.persist(sess)
	return entry, nil
}

// JournalForTransaction returns the first annotation for a transaction.
func (s *Service) JournalForTransaction(clientID, transactionID string) (types.JournalEntry, bool, error) {
	sess, err := s.session(clientID)
	if err != nil {
		return types.JournalEntry{}, false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	entry, ok := sess.journal.ForTransaction(transactionID)
	return entry, ok, nil
}
