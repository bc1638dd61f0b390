// Package modeltest provides an in-memory database with the full schema for tests.
package modeltest

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Fresh in-memory database, dropped when the test ends
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: model.NowFunc,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	// All queries share one connection, in-memory database lives as long as it's open
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.All()...))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, id string, role model.UserRole) *model.User {
	t.Helper()

	email := id + "@example.com"
	user := &model.User{
		ID:          id,
		Handle:      id,
		Email:       &email,
		DisplayName: id,
		Role:        role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
