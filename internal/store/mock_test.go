package store

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type queryExpectation struct {
	expect *regexp.Regexp
	args   []any
	row    []any
	err    error
}

type execExpectation struct {
	expect *regexp.Regexp
	args   []any
	tag    string
	err    error
}

func (e execExpectation) commandTag() pgconn.CommandTag {
	if e.tag == "" {
		return pgconn.NewCommandTag("MOCK")
	}
	return pgconn.NewCommandTag(e.tag)
}

type mockPool struct {
	t       *testing.T
	queries []queryExpectation
	execs   []execExpectation
	txs     []*mockTx
	txIdx   int
	pingErr error
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(m.queries) == 0 {
		m.t.Fatalf("unexpected query: %s", sql)
	}
	exp := m.queries[0]
	m.queries = m.queries[1:]
	if !exp.expect.MatchString(sql) {
		m.t.Fatalf("query mismatch: %s", sql)
	}
	assertArgs(m.t, exp.args, args)
	return mockRow{values: exp.row, err: exp.err}
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.t.Fatalf("unexpected multi-row query: %s", sql)
	return nil, nil
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if len(m.execs) == 0 {
		m.t.Fatalf("unexpected exec: %s", sql)
	}
	exp := m.execs[0]
	m.execs = m.execs[1:]
	if !exp.expect.MatchString(sql) {
		m.t.Fatalf("exec mismatch: %s", sql)
	}
	assertArgs(m.t, exp.args, arguments)
	return exp.commandTag(), exp.err
}

func (m *mockPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if m.txIdx >= len(m.txs) {
		m.t.Fatalf("unexpected begin tx (no more transactions)")
	}
	tx := m.txs[m.txIdx]
	m.txIdx++
	tx.started = true
	return tx, nil
}

func (m *mockPool) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockPool) assertDone() {
	m.t.Helper()
	if len(m.queries) != 0 {
		m.t.Fatalf("pending queries: %v", m.queries)
	}
	if len(m.execs) != 0 {
		m.t.Fatalf("pending execs: %v", m.execs)
	}
	if m.txIdx != len(m.txs) {
		m.t.Fatalf("expected %d transactions, got %d", len(m.txs), m.txIdx)
	}
}

// mockRow assigns values positionally into Scan destinations.
type mockRow struct {
	values []any
	err    error
}

func (m mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) != len(m.values) {
		return fmt.Errorf("unexpected dest count: %d, have %d values", len(dest), len(m.values))
	}
	for i, v := range m.values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("column %d: cannot scan %T into %s", i, v, target.Type())
		}
		target.Set(val)
	}
	return nil
}

type mockTx struct {
	execs     []execExpectation
	queries   []queryExpectation
	started   bool
	committed bool
	rolled    bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, fmt.Errorf("unexpected nested begin")
}
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolled = true
	}
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, fmt.Errorf("unexpected CopyFrom")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return emptyBatchResults{}
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, fmt.Errorf("unexpected Prepare")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if len(m.execs) == 0 {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected tx exec: %s", sql)
	}
	exp := m.execs[0]
	m.execs = m.execs[1:]
	if !exp.expect.MatchString(sql) {
		return pgconn.CommandTag{}, fmt.Errorf("exec mismatch: %s", sql)
	}
	if err := assertArgs(nil, exp.args, arguments); err != nil {
		return pgconn.CommandTag{}, err
	}
	return exp.commandTag(), exp.err
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected query")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(m.queries) == 0 {
		return mockRow{err: fmt.Errorf("unexpected queryrow: %s", sql)}
	}
	exp := m.queries[0]
	m.queries = m.queries[1:]
	if !exp.expect.MatchString(sql) {
		return mockRow{err: fmt.Errorf("queryrow mismatch: %s", sql)}
	}
	if err := assertArgs(nil, exp.args, args); err != nil {
		return mockRow{err: err}
	}
	return mockRow{values: exp.row, err: exp.err}
}
func (m *mockTx) Conn() *pgx.Conn { return nil }

func (m *mockTx) assertDone(t *testing.T) {
	t.Helper()
	if len(m.execs) != 0 {
		t.Fatalf("pending tx execs: %v", m.execs)
	}
	if len(m.queries) != 0 {
		t.Fatalf("pending tx queries: %v", m.queries)
	}
	if !m.committed && !m.rolled {
		t.Fatal("transaction not finished")
	}
}

func assertArgs(t *testing.T, expected, actual []any) error {
	if len(expected) == 0 {
		return nil
	}
	if len(expected) != len(actual) {
		if t != nil {
			t.Fatalf("argument length mismatch: expected %d got %d", len(expected), len(actual))
		}
		return fmt.Errorf("argument length mismatch")
	}
	for i, exp := range expected {
		if exp == nil {
			continue
		}
		if exp != actual[i] {
			if t != nil {
				t.Fatalf("argument mismatch at %d: expected %v got %v", i, exp, actual[i])
			}
			return fmt.Errorf("argument mismatch at %d: expected %v got %v", i, exp, actual[i])
		}
	}
	return nil
}

type emptyBatchResults struct{}

func (emptyBatchResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("unexpected batch exec")
}
func (emptyBatchResults) Query() (pgx.Rows, error) { return nil, fmt.Errorf("unexpected batch query") }
func (emptyBatchResults) QueryRow() pgx.Row {
	return mockRow{err: fmt.Errorf("unexpected batch queryrow")}
}
func (emptyBatchResults) Close() error { return nil }
