package user

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

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

	err = db.AutoMigrate(&models.User{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestRecordLogin(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		username      string
		groups        []string
		expectedError error
		expectedCount uint64
	}{
		{name: "nil database", dbParam: nil, username: "alice", expectedError: ErrDBNil},
		{name: "empty username", dbParam: db, username: "", expectedError: ErrUsernameEmpty},
		{name: "first login", dbParam: db, username: "alice", groups: []string{"admins"}, expectedCount: 1},
		{name: "second login refreshes groups", dbParam: db, username: "alice", groups: []string{"admins", "staff"}, expectedCount: 2},
		{name: "other user", dbParam: db, username: "bob", groups: []string{}, expectedCount: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			at := time.Now().UTC().Truncate(time.Second)

			user, err := RecordLogin(tc.dbParam, tc.username, tc.groups, at)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, user)

				return
			}

			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.Equal(t, tc.expectedCount, user.LoginCount)

			stored, err := Get(db, tc.username)
			require.NoError(t, err)
			assert.Equal(t, user.ID, stored.ID)
			assert.Equal(t, tc.groups, stored.Groups)
			assert.True(t, at.Equal(stored.LastLoginAt.UTC()))
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecordLoginConcurrentFirstLogin(t *testing.T) {
	// several connections, so the logins really overlap
	name := filepath.Join(t.TempDir(), "users.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)

	t.Cleanup(func() { _ = sqlDB.Close() })

	const logins = 8

	var (
		wg   sync.WaitGroup
		errs = make(chan error, logins)
		ids  = make(chan uint64, logins)
	)

	for range logins {
		wg.Add(1)

		go func() {
			defer wg.Done()

			user, errLogin := RecordLogin(db, "alice", []string{"staff"}, time.Now())
			if errLogin != nil {
				errs <- errLogin
				return
			}

			ids <- user.ID
		}()
	}

	wg.Wait()
	close(errs)
	close(ids)

	for errLogin := range errs {
		require.NoError(t, errLogin)
	}

	var first uint64
	for id := range ids {
		if first == 0 {
			first = id
		}

		assert.Equal(t, first, id)
	}

	stored, err := Get(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(logins), stored.LoginCount)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)

	_, err := Get(nil, "alice")
	require.ErrorIs(t, err, ErrDBNil)

	_, err = Get(db, "")
	require.ErrorIs(t, err, ErrUsernameEmpty)

	_, err = Get(db, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	store := Store{DB: db}

	first, err := store.RecordLogin(context.Background(), "alice", []string{"admins"})
	require.NoError(t, err)

	second, err := store.RecordLogin(context.Background(), "alice", []string{"admins"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = Store{}.RecordLogin(context.Background(), "alice", nil)
	require.ErrorIs(t, err, ErrDBNil)
}
