package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/sendline/internal/model"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

// ---------- Mock Tx ----------

// mockTx implements pgx.Tx. Methods the store never calls fall through to the
// nil embedded interface and panic if used.
type mockTx struct {
	pgx.Tx
	mock.Mock
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockTx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockTx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

func errRow(err error) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return err }}
}

// emailRow returns a row that scans e in emailColumns order.
func emailRow(e model.Email) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int64)) = e.ID
		*(dest[1].(*string)) = e.AccountID
		*(dest[2].(*string)) = e.IdempotencyKey
		*(dest[3].(*string)) = e.To
		*(dest[4].(*string)) = e.From
		*(dest[5].(*string)) = e.Subject
		*(dest[6].(**string)) = e.HTML
		*(dest[7].(**string)) = e.Text
		*(dest[8].(*string)) = e.Status
		*(dest[9].(*int)) = e.Attempts
		*(dest[10].(**string)) = e.LastError
		*(dest[11].(**string)) = e.ProviderMessageID
		*(dest[12].(**time.Time)) = e.SentAt
		*(dest[13].(*time.Time)) = e.CreatedAt
		*(dest[14].(*time.Time)) = e.UpdatedAt
		return nil
	}}
}

// statusRow answers the claim-miss status lookup.
func statusRow(status string, remainingSecs float64) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = status
		*(dest[1].(*float64)) = remainingSecs
		return nil
	}}
}
