package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

var (
	errTxClosed      = errors.New("transaction already closed")
	errBalanceCheck  = errors.New(`new row for relation "accounts" violates check constraint "accounts_balance_check"`)
	errForeignTxType = errors.New("transaction was not started by this store")
)

// Store is an in-memory implementation of every usecase repository and of
// the TransactionManager. Transactions run one at a time and are rolled
// back by replaying an undo log, which gives the same all-or-nothing
// behaviour as the database.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction
	txOrder      []string
	requests     map[string]*domain.PaymentRequest
	wallet       []*domain.WalletEntry
	outbox       []*domain.OutboxEvent

	commits   atomic.Int64
	rollbacks atomic.Int64

	// Hooks run before the corresponding write; a non-nil error aborts it.
	CreateTransactionFunc func(record *domain.Transaction) error
	UpdateStatusFunc      func(id string, status domain.PaymentRequestStatus) error
	CreateWalletEntryFunc func(entry *domain.WalletEntry) error
	CreateOutboxFunc      func(event *domain.OutboxEvent) error
	BeginFunc             func(ctx context.Context) error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		requests:     make(map[string]*domain.PaymentRequest),
	}
}

// SeedAccount inserts an enabled account outside any transaction.
func (s *Store) SeedAccount(username string, role domain.Role, balance int64) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	acc := &domain.Account{
		ID:        "acc-" + username,
		Username:  username,
		Email:     username + "@campus.test",
		Role:      role,
		Balance:   balance,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[username] = acc
	return copyAccount(acc)
}

// SeedTransaction inserts a log row outside any transaction.
func (s *Store) SeedTransaction(record *domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[record.ID] = copyTransaction(record)
	s.txOrder = append(s.txOrder, record.ID)
}

// Account returns a snapshot of the named account, or nil.
func (s *Store) Account(username string) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acc, ok := s.accounts[username]; ok {
		return copyAccount(acc)
	}
	return nil
}

// Balance returns the named account's balance.
func (s *Store) Balance(username string) int64 {
	if acc := s.Account(username); acc != nil {
		return acc.Balance
	}
	return 0
}

// TotalBalance sums every account balance.
func (s *Store) TotalBalance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, acc := range s.accounts {
		total += acc.Balance
	}
	return total
}

// TransactionLog returns the log rows in insertion order.
func (s *Store) TransactionLog() []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Transaction, 0, len(s.txOrder))
	for _, id := range s.txOrder {
		out = append(out, copyTransaction(s.transactions[id]))
	}
	return out
}

// Request returns a snapshot of a payment request, or nil.
func (s *Store) Request(id string) *domain.PaymentRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if req, ok := s.requests[id]; ok {
		cp := *req
		return &cp
	}
	return nil
}

// WalletEntries returns wallet history in insertion order.
func (s *Store) WalletEntries() []*domain.WalletEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.WalletEntry, 0, len(s.wallet))
	for _, e := range s.wallet {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// OutboxEvents returns outbox rows in insertion order.
func (s *Store) OutboxEvents() []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// Commits reports how many transactions committed.
func (s *Store) Commits() int64 { return s.commits.Load() }

// Rollbacks reports how many transactions rolled back.
func (s *Store) Rollbacks() int64 { return s.rollbacks.Load() }

// Begin starts a transaction. It blocks while another transaction is open.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if s.BeginFunc != nil {
		if err := s.BeginFunc(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.txMu.Lock()
	return &memTx{store: s}, nil
}

type memTx struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxClosed
	}
	t.done = true
	t.undo = nil
	t.store.commits.Add(1)
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()

	t.undo = nil
	t.store.rollbacks.Add(1)
	t.store.txMu.Unlock()
	return nil
}

// onUndo registers fn to run if tx rolls back. Callers hold s.mu.
func onUndo(tx usecase.Transaction, fn func()) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.done {
		return errForeignTxType
	}
	mt.undo = append(mt.undo, fn)
	return nil
}

// Accounts returns the store as a usecase.AccountRepository.
func (s *Store) Accounts() usecase.AccountRepository { return accountRepo{s} }

// Transactions returns the store as a usecase.TransactionRepository.
func (s *Store) Transactions() usecase.TransactionRepository { return transactionRepo{s} }

// Requests returns the store as a usecase.PaymentRequestRepository.
func (s *Store) Requests() usecase.PaymentRequestRepository { return requestRepo{s} }

// Wallet returns the store as a usecase.WalletHistoryRepository.
func (s *Store) Wallet() usecase.WalletHistoryRepository { return walletRepo{s} }

// Outbox returns the store as a usecase.OutboxRepository.
func (s *Store) Outbox() usecase.OutboxRepository { return outboxRepo{s} }

// Ledger returns the store as a usecase.LedgerRepository.
func (s *Store) Ledger() usecase.LedgerRepository { return ledgerRepo{s} }

type accountRepo struct{ s *Store }

func (r accountRepo) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.accounts[account.Username]; exists {
		return domain.ErrUsernameTaken
	}
	if err := onUndo(tx, func() { delete(r.s.accounts, account.Username) }); err != nil {
		return err
	}
	r.s.accounts[account.Username] = copyAccount(account)
	return nil
}

func (r accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, acc := range r.s.accounts {
		if acc.ID == id {
			return copyAccount(acc), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r accountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if acc := r.s.Account(username); acc != nil {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r accountRepo) LockByUsernames(ctx context.Context, tx usecase.Transaction, usernames []string) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sorted := append([]string(nil), usernames...)
	sort.Strings(sorted)

	out := make([]*domain.Account, 0, len(sorted))
	for _, name := range sorted {
		if acc, ok := r.s.accounts[name]; ok {
			out = append(out, copyAccount(acc))
		}
	}
	return out, nil
}

func (r accountRepo) AdjustBalance(ctx context.Context, tx usecase.Transaction, username string, delta int64, updatedAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accounts[username]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	if acc.Balance+delta < 0 {
		return 0, errBalanceCheck
	}

	prevBalance, prevUpdated := acc.Balance, acc.UpdatedAt
	if err := onUndo(tx, func() { acc.Balance, acc.UpdatedAt = prevBalance, prevUpdated }); err != nil {
		return 0, err
	}
	acc.Balance += delta
	acc.UpdatedAt = updatedAt
	return acc.Balance, nil
}

func (r accountRepo) SetEnabled(ctx context.Context, tx usecase.Transaction, username string, enabled bool, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.accounts[username]
	if !ok {
		return domain.ErrAccountNotFound
	}

	prevEnabled, prevUpdated := acc.Enabled, acc.UpdatedAt
	if err := onUndo(tx, func() { acc.Enabled, acc.UpdatedAt = prevEnabled, prevUpdated }); err != nil {
		return err
	}
	acc.Enabled = enabled
	acc.UpdatedAt = updatedAt
	return nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	if r.s.CreateTransactionFunc != nil {
		if err := r.s.CreateTransactionFunc(record); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := len(r.s.txOrder)
	if err := onUndo(tx, func() {
		delete(r.s.transactions, record.ID)
		r.s.txOrder = r.s.txOrder[:n]
	}); err != nil {
		return err
	}
	r.s.transactions[record.ID] = copyTransaction(record)
	r.s.txOrder = append(r.s.txOrder, record.ID)
	return nil
}

func (r transactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if t, ok := r.s.transactions[id]; ok {
		return copyTransaction(t), nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (r transactionRepo) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r transactionRepo) UpdateTags(ctx context.Context, tx usecase.Transaction, id string, side domain.TagSide, tags []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	prevSender, prevReceiver := t.SenderTags, t.ReceiverTags
	if err := onUndo(tx, func() { t.SenderTags, t.ReceiverTags = prevSender, prevReceiver }); err != nil {
		return err
	}
	if side == domain.TagSideSender {
		t.SenderTags = append([]string(nil), tags...)
	} else {
		t.ReceiverTags = append([]string(nil), tags...)
	}
	return nil
}

func (r transactionRepo) ListByUsername(ctx context.Context, username string, limit, offset int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range r.s.TransactionLog() {
		if t.Involves(username) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r transactionRepo) ListByUsernameBetween(ctx context.Context, username string, from, to time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range r.s.TransactionLog() {
		if t.Status && t.Involves(username) && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type requestRepo struct{ s *Store }

func (r requestRepo) Create(ctx context.Context, tx usecase.Transaction, req *domain.PaymentRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := onUndo(tx, func() { delete(r.s.requests, req.ID) }); err != nil {
		return err
	}
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r requestRepo) GetByID(ctx context.Context, id string) (*domain.PaymentRequest, error) {
	if req := r.s.Request(id); req != nil {
		return req, nil
	}
	return nil, domain.ErrRequestNotFound
}

func (r requestRepo) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.PaymentRequest, error) {
	return r.GetByID(ctx, id)
}

func (r requestRepo) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.PaymentRequestStatus, updatedAt time.Time) error {
	if r.s.UpdateStatusFunc != nil {
		if err := r.s.UpdateStatusFunc(id, status); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}

	prevStatus, prevUpdated := req.Status, req.UpdatedAt
	if err := onUndo(tx, func() { req.Status, req.UpdatedAt = prevStatus, prevUpdated }); err != nil {
		return err
	}
	req.Status = status
	req.UpdatedAt = updatedAt
	return nil
}

func (r requestRepo) List(ctx context.Context, filter domain.PaymentRequestFilter) ([]*domain.PaymentRequest, error) {
	r.s.mu.RLock()
	var out []*domain.PaymentRequest
	for _, req := range r.s.requests {
		incoming := req.RequesteeUsername == filter.Username
		outgoing := req.RequesterUsername == filter.Username

		switch filter.Direction {
		case domain.DirectionIncoming:
			if !incoming {
				continue
			}
		case domain.DirectionOutgoing:
			if !outgoing {
				continue
			}
		default:
			if !incoming && !outgoing {
				continue
			}
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}

		cp := *req
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

type walletRepo struct{ s *Store }

func (r walletRepo) Create(ctx context.Context, tx usecase.Transaction, entry *domain.WalletEntry) error {
	if r.s.CreateWalletEntryFunc != nil {
		if err := r.s.CreateWalletEntryFunc(entry); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := len(r.s.wallet)
	if err := onUndo(tx, func() { r.s.wallet = r.s.wallet[:n] }); err != nil {
		return err
	}
	cp := *entry
	r.s.wallet = append(r.s.wallet, &cp)
	return nil
}

func (r walletRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletEntry, error) {
	var out []*domain.WalletEntry
	entries := r.s.WalletEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].UserID == userID {
			out = append(out, entries[i])
		}
	}
	return page(out, limit, offset), nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if r.s.CreateOutboxFunc != nil {
		if err := r.s.CreateOutboxFunc(event); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := len(r.s.outbox)
	if err := onUndo(tx, func() { r.s.outbox = r.s.outbox[:n] }); err != nil {
		return err
	}
	cp := *event
	r.s.outbox = append(r.s.outbox, &cp)
	return nil
}

func (r outboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	for _, e := range r.s.OutboxEvents() {
		if !e.Published {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r outboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		e.Published = true
		e.PublishedAt = &publishedAt
	})
}

func (r outboxRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.update(id, func(e *domain.OutboxEvent) {
		e.Attempts++
		attempts = e.Attempts
	})
	return attempts, err
}

func (r outboxRepo) MarkFailed(ctx context.Context, id string, failedAt time.Time) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		e.Published = true
		e.Failed = true
		e.PublishedAt = &failedAt
	})
}

func (r outboxRepo) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.outbox[:0]
	var deleted int64
	for _, e := range r.s.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return deleted, nil
}

func (r outboxRepo) update(id string, fn func(e *domain.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.outbox {
		if e.ID == id {
			fn(e)
			return nil
		}
	}
	return errors.New("outbox event not found")
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	totals := usecase.LedgerTotals{Balances: r.s.TotalBalance()}
	for _, e := range r.s.WalletEntries() {
		if e.Type == domain.WalletDeposit {
			totals.Deposits += e.Amount
		} else {
			totals.Withdrawals += e.Amount
		}
	}
	return totals, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	cp.SenderTags = append([]string{}, t.SenderTags...)
	cp.ReceiverTags = append([]string{}, t.ReceiverTags...)
	return &cp
}
