package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/momentum-app/momentum-api/internal/models"
)

func newMockedRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewUserRepository(db), mock
}

func TestUserRepository_FindByHandle(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE handle = \$1`).
		WithArgs("alice", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "display_name", "timezone"}).
			AddRow(uint64(7), "alice", "Alice", "UTC"))

	user, err := repo.FindByHandle("alice")
	require.NoError(t, err)
	require.Equal(t, uint64(7), user.ID)
	require.Equal(t, "alice", user.Handle)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByHandleNotFound(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE handle = \$1`).
		WithArgs("ghost", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle"}))

	_, err := repo.FindByHandle("ghost")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetStats(t *testing.T) {
	repo, mock := newMockedRepo(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "user_stats" WHERE user_id = \$1`).
		WithArgs(uint64(7), 1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_score", "total_completed_tasks", "current_streak", "longest_streak", "updated_at"}).
			AddRow(uint64(7), int64(1200), int64(5), 3, 9, now))

	stats, err := repo.GetStats(7)
	require.NoError(t, err)
	require.Equal(t, int64(1200), stats.TotalScore)
	require.Equal(t, 3, stats.CurrentStreak)
	require.Equal(t, 9, stats.LongestStreak)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListStatsByUserIDsOrdersByScore(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "user_stats" WHERE user_id IN \(\$1,\$2\) ORDER BY total_score DESC`).
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_score"}).
			AddRow(uint64(2), int64(900)).
			AddRow(uint64(1), int64(400)))

	rows, err := repo.ListStatsByUserIDs([]uint64{1, 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, uint64(2), rows[0].UserID)
	require.Equal(t, int64(900), rows[0].TotalScore)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListStatsByUserIDsEmpty(t *testing.T) {
	repo, mock := newMockedRepo(t)

	rows, err := repo.ListStatsByUserIDs(nil)
	require.NoError(t, err)
	require.Empty(t, rows)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateWithStatsRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockedRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(gorm.ErrInvalidData)
	mock.ExpectRollback()

	err := repo.CreateWithStats(&models.User{
		Handle:       "alice",
		DisplayName:  "Alice",
		PasswordHash: "hash",
		Timezone:     "UTC",
	}, &models.UserStats{})
	require.ErrorIs(t, err, ErrCreateUser)

	require.NoError(t, mock.ExpectationsWereMet())
}
