package postgres

import (
	"context"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoArmGo/GiftList/internal/auth"
	"github.com/GoArmGo/GiftList/internal/database/client"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestSeedSkipsWhenUsersExist(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	seeded, err := NewSeeder(db, auth.BcryptHasher{Cost: bcrypt.MinCost}, nil, logger.Discard()).
		SeedDemoData(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDemoDataPostgres(t *testing.T) {
	url := os.Getenv("GIFTLIST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GIFTLIST_TEST_DATABASE_URL is not set")
	}
	require.NoError(t, client.ApplyMigrations(url, logger.Discard()))

	db, err := OpenGorm(url)
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&domain.User{}).Count(&users).Error)
	if users > 0 {
		t.Skip("database is not empty")
	}

	seeder := NewSeeder(db, auth.BcryptHasher{Cost: bcrypt.MinCost}, nil, logger.Discard())
	seeded, err := seeder.SeedDemoData(context.Background())
	require.NoError(t, err)
	assert.True(t, seeded)

	var purchases int64
	require.NoError(t, db.Model(&domain.Purchase{}).Count(&purchases).Error)
	assert.Equal(t, int64(1), purchases)

	// повторный запуск ничего не меняет
	seeded, err = seeder.SeedDemoData(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)
}
