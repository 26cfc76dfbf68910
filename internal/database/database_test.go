package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect("sqlite://file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.True(t, db.Migrator().HasTable("grade_students"))
	require.True(t, db.Migrator().HasTable("absence_records"))
	require.True(t, db.Migrator().HasTable("students"))
	require.True(t, db.Migrator().HasTable("activity_logs"))
	require.NoError(t, Ping(context.Background(), db))
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	_, err := Connect("  ")
	require.Error(t, err)
}

func TestConnectRedisRequiresURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "", "test")
	require.Error(t, err)
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "test")
	require.Error(t, err)
}

func TestConnectTranslatesUniqueViolations(t *testing.T) {
	db, err := Connect("sqlite://" + filepath.Join(t.TempDir(), "unique.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.GradeStudent{LastName: "Martin", FirstName: "Alice", CNE: "CNE001"}).Error)
	err = db.Create(&models.GradeStudent{LastName: "Bernard", FirstName: "Luc", CNE: "CNE001"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
