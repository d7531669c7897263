package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.LoginAttempt{}), "failed to migrate test database")

	return db
}

func TestRecord(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		attempt       models.LoginAttempt
		expectedError error
	}{
		{name: "nil database", attempt: models.LoginAttempt{Username: "alice"}, expectedError: ErrDBNil},
		{name: "empty username", dbParam: db, attempt: models.LoginAttempt{}, expectedError: ErrUsernameEmpty},
		{name: "success", dbParam: db, attempt: models.LoginAttempt{Username: "alice", Outcome: "success", Groups: 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Record(tc.dbParam, &tc.attempt)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, tc.attempt.ID)
			assert.False(t, tc.attempt.CreatedAt.IsZero())
		})
	}
}

func TestRecent(t *testing.T) {
	db := setupTestDB(t)
	recorder := Recorder{DB: db}

	for i := range 5 {
		user := "alice"
		if i%2 == 1 {
			user = "bob"
		}

		require.NoError(t, recorder.Record(context.Background(), user, fmt.Sprintf("outcome-%d", i), i, "127.0.0.1"))
	}

	attempts, err := Recent(db, 3)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, "outcome-4", attempts[0].Outcome)
	assert.Equal(t, "outcome-2", attempts[2].Outcome)

	attempts, err = Recent(db, 0)
	require.NoError(t, err)
	assert.Len(t, attempts, 5)

	attempts, err = RecentByUser(db, "bob", 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "outcome-3", attempts[0].Outcome)
	assert.Equal(t, "127.0.0.1", attempts[0].RemoteIP)

	_, err = Recent(nil, 1)
	require.ErrorIs(t, err, ErrDBNil)

	_, err = RecentByUser(nil, "bob", 1)
	require.ErrorIs(t, err, ErrDBNil)
}
