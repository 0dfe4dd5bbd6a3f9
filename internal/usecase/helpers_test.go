package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gderossilive/devShopDemo/internal/adapter/repo"
	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

var fixedNow = time.Date(2024, 5, 4, 12, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newStore(t *testing.T) *repo.SQLStore {
	t.Helper()
	ctx := context.Background()
	s, err := repo.Open(ctx, repo.DialectSQLite, ":memory:", repo.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DB().Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func addCategory(t *testing.T, s *repo.SQLStore, name string) int64 {
	t.Helper()
	res, err := s.DB().Exec(`INSERT INTO categories (category_name,is_active,created_date,modified_date) VALUES (?,1,?,?)`,
		name, fixedNow, fixedNow)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return id
}

func addProduct(t *testing.T, s *repo.SQLStore, name, price string, stock int, active bool) int64 {
	t.Helper()
	cat := addCategory(t, s, name+" category")
	res, err := s.DB().Exec(`
INSERT INTO products (product_name,category_id,unit_price,units_in_stock,is_active,is_featured,created_date,modified_date)
VALUES (?,?,?,?,?,0,?,?)`, name, cat, price, stock, active, fixedNow, fixedNow)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return id
}

func count(t *testing.T, s *repo.SQLStore, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func stock(t *testing.T, s *repo.SQLStore, productID int64) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT units_in_stock FROM products WHERE product_id = ?`, productID).Scan(&n))
	return n
}

// recordingNotifier captures what the workflow hands to the dispatcher.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []usecase.OrderPlacedMsg
	err  error
	boom bool
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, msg usecase.OrderPlacedMsg) error {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
	if n.boom {
		panic("mail server on fire")
	}
	return n.err
}

func (n *recordingNotifier) sent() []usecase.OrderPlacedMsg {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]usecase.OrderPlacedMsg(nil), n.msgs...)
}

// flakyRunner reports a conflict for the first fails attempts, then delegates.
type flakyRunner struct {
	next     usecase.TxRunner
	fails    int
	mu       sync.Mutex
	attempts int
}

func (r *flakyRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.Tx) error) error {
	r.mu.Lock()
	r.attempts++
	n := r.attempts
	r.mu.Unlock()
	if n <= r.fails {
		return errors.Join(entity.ErrTransactionConflict, errors.New("deadlock found"))
	}
	return r.next.WithinTx(ctx, fn)
}

// stallingRunner runs the real transaction body, then holds the transaction
// open until its context ends, like a lock wait that never resolves.
type stallingRunner struct {
	next  usecase.TxRunner
	calls atomic.Int32
}

func (r *stallingRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.Tx) error) error {
	r.calls.Add(1)
	return r.next.WithinTx(ctx, func(ctx context.Context, tx usecase.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	})
}

// memIdempotency is an in-process IdempotencyStore.
type memIdempotency struct {
	mu      sync.Mutex
	locks   map[string]bool
	results map[string]string
	err     error
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{locks: map[string]bool{}, results: map[string]string{}}
}

func (m *memIdempotency) TryLock(_ context.Context, scope, key string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + "|" + key
	if m.locks[k] {
		return false, nil
	}
	m.locks[k] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+"|"+key)
	return nil
}

func (m *memIdempotency) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[scope+"|"+key] = value
	return nil
}

func (m *memIdempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.results[scope+"|"+key]
	return v, ok, nil
}
