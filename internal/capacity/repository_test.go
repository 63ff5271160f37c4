package capacity

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tripstock/internal/shared/errs"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

const versionedUpdate = `UPDATE "capacities" SET .* WHERE \(?id = \$\d+ AND version = \$\d+\)?`

func TestRepository_UpdateWithVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec(versionedUpdate).WillReturnResult(sqlmock.NewResult(0, 0))

	c := &Capacity{ID: uuid.New(), TotalCapacity: 10, Status: StatusOpen, Version: 4}
	err := repo.UpdateWithVersion(context.Background(), c)

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(4), c.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateWithVersionBumps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec(versionedUpdate).WillReturnResult(sqlmock.NewResult(0, 1))

	c := &Capacity{ID: uuid.New(), TotalCapacity: 10, Status: StatusFull, Version: 4}
	require.NoError(t, repo.UpdateWithVersion(context.Background(), c))

	assert.Equal(t, int64(5), c.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "capacities" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRepository_SumActiveHoldSeats(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	a, b, empty := uuid.New(), uuid.New(), uuid.New()
	insert := func(capacityID uuid.UUID, seats int, expiresAt time.Time, released *time.Time) {
		require.NoError(t, db.Exec(
			"INSERT INTO holds (id, capacity_id, seat_count, expires_at, released_at) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), capacityID, seats, expiresAt, released,
		).Error)
	}
	insert(a, 3, now.Add(time.Minute), nil)
	insert(a, 2, now.Add(time.Hour), nil)
	insert(a, 7, now.Add(-time.Second), nil)
	insert(a, 4, now.Add(time.Hour), &now)
	insert(b, 1, now.Add(time.Minute), nil)

	sums, err := repo.SumActiveHoldSeats(ctx, []uuid.UUID{a, b, empty}, now)
	require.NoError(t, err)

	assert.Equal(t, 5, sums[a])
	assert.Equal(t, 1, sums[b])
	assert.Equal(t, 0, sums[empty])
}
