package ledger

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresLedger_Contains(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	l := newPostgres(mock, "processed_announcements")

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM processed_announcements WHERE id = \$1\)`).
		WithArgs("1001").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := l.Contains(context.Background(), "1001")
	require.NoError(t, err)
	require.True(t, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_CommitIgnoresConflicts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	l := newPostgres(mock, "processed_announcements")

	mock.ExpectExec(`INSERT INTO processed_announcements \(id\) VALUES \(\$1\) ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("1001").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, l.Commit(context.Background(), "1001"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_EnsureTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	l := newPostgres(mock, "")
	require.Equal(t, "processed_announcements", l.table)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS processed_announcements`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, l.ensureTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
