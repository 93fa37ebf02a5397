package core

import (
	"context"
	"strings"
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

// sqlHas matches a query containing substr.
func sqlHas(substr string) any {
	return mock.MatchedBy(func(q string) bool { return strings.Contains(q, substr) })
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

func scanEmailInto(e model.Email, dest ...any) error {
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
}

// emailRow returns a row that scans e in emailColumns order.
func emailRow(e model.Email) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return scanEmailInto(e, dest...) }}
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newEmailRows(emails ...model.Email) *mockRows {
	r := &mockRows{}
	for _, e := range emails {
		r.scanFuncs = append(r.scanFuncs, func(dest ...any) error { return scanEmailInto(e, dest...) })
	}
	return r
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }
