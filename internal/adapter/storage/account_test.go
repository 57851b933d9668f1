package storage

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ibrahimkeyboad/payledger/internal/core/domain"
)

type execCall struct {
	sql  string
	args []any
}

// recordingQuerier captures Exec calls and fails the test on anything else.
type recordingQuerier struct {
	t     *testing.T
	execs []execCall
	err   error
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("SELECT 2"), q.err
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	q.t.Fatal("unexpected Query call")
	return nil, nil
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	q.t.Fatal("unexpected QueryRow call")
	return nil
}

func TestLockForUpdateLocksSortedDistinctIDs(t *testing.T) {
	q := &recordingQuerier{t: t}
	ids := []int64{2, 1, 2}

	if err := NewAccountRepository(q).LockForUpdate(context.Background(), ids...); err != nil {
		t.Fatalf("LockForUpdate returned error: %v", err)
	}

	if len(q.execs) != 1 {
		t.Fatalf("expected one Exec, got %d", len(q.execs))
	}
	call := q.execs[0]
	if call.sql != `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE` {
		t.Fatalf("unexpected lock query %q", call.sql)
	}
	if len(call.args) != 1 {
		t.Fatalf("expected one argument, got %d", len(call.args))
	}
	got, ok := call.args[0].([]int64)
	if !ok || !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("expected ids [1 2], got %#v", call.args[0])
	}
	if !slices.Equal(ids, []int64{2, 1, 2}) {
		t.Fatalf("caller's ids were reordered: %v", ids)
	}
}

func TestLockForUpdateWrapsExecError(t *testing.T) {
	boom := errors.New("connection reset")
	q := &recordingQuerier{t: t, err: boom}

	err := NewAccountRepository(q).LockForUpdate(context.Background(), 1, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestWrapAccountErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: domain.ErrDuplicateName},
		{name: "numeric overflow", err: &pgconn.PgError{Code: "22003"}, want: domain.ErrOutOfRange},
		{name: "other", err: pgx.ErrTxClosed, want: pgx.ErrTxClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := wrapAccountErr("update", "Alice", tt.err); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
