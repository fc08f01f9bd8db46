package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costoptimizer/backend/internal/model"
)

func newMock(t *testing.T) (*PostgresCostRepository, *PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresCostRepository(db), NewPostgresUserRepository(db), mock
}

func TestCostRepository_Create(t *testing.T) {
	costs, _, mock := newMock(t)
	rec := model.NewCostRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "EC2-Instance", 1.0, 2.0, "a1")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cloud_costs")).
		WithArgs(rec.ID, rec.Date, "EC2-Instance", 1.0, 2.0, "a1", rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, costs.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRepository_Exists(t *testing.T) {
	costs, _, mock := newMock(t)
	day := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(model.Day(day), "EC2-Instance", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := costs.Exists(context.Background(), day, "EC2-Instance", "a1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRepository_ListByServiceSince(t *testing.T) {
	costs, _, mock := newMock(t)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "date", "service", "cost", "usage", "account_id", "created_at"}).
		AddRow(id.String(), since, "EC2-Instance", 1.0, 2.0, "a1", since)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE strpos(service, $1) > 0 AND date >= $2")).
		WithArgs("EC2", since).
		WillReturnRows(rows)

	recs, err := costs.ListByServiceSince(context.Background(), "EC2", since)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, "EC2-Instance", recs[0].Service)
	assert.Equal(t, 2.0, recs[0].Usage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRepository_ListAllEmpty(t *testing.T) {
	costs, _, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM cloud_costs ORDER BY")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "service", "cost", "usage", "account_id", "created_at"}))

	recs, err := costs.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestCostRepository_ListBetweenIsEndExclusive(t *testing.T) {
	costs, _, mock := newMock(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE date >= $1 AND date < $2")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "service", "cost", "usage", "account_id", "created_at"}))

	_, err := costs.ListBetween(context.Background(), start, end)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRepository_SumBetween(t *testing.T) {
	costs, _, mock := newMock(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(cost), 0)")).
		WithArgs(start, start.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(12.5))

	total, err := costs.SumBetween(context.Background(), start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 12.5, total)
}

func TestCostRepository_QueryError(t *testing.T) {
	costs, _, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := costs.ListSince(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEnsureSchema(t *testing.T) {
	costs, users, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS cloud_costs")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_cloud_costs_key")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, costs.EnsureSchema(context.Background()))
	require.NoError(t, users.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsername(t *testing.T) {
	_, users, mock := newMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow(id.String(), "alice", "alice@example.com", "hash", now))

	u, err := users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestUserRepository_NotFound(t *testing.T) {
	_, users, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}))

	u, err := users.GetByEmail(context.Background(), "nobody@example.com")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrNotFound)
}
