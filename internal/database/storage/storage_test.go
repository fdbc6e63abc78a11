package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func giftRows(gifts ...domain.Gift) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "url", "image_url", "image_path", "price_cents", "notes", "created_at", "updated_at"})
	for _, g := range gifts {
		rows.AddRow(g.ID.String(), g.OwnerID.String(), g.Title, nil, nil, nil, nil, nil, nil, g.CreatedAt, g.UpdatedAt)
	}
	return rows
}

func TestUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: pgUniqueViolation, Constraint: constraintPurchaseGift}

	assert.True(t, uniqueViolation(err, constraintPurchaseGift))
	assert.True(t, uniqueViolation(err, ""))
	assert.False(t, uniqueViolation(err, constraintUserEmail))
	assert.False(t, uniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, uniqueViolation(sql.ErrNoRows, ""))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\`, escapeLike(`a_b%c\`))
}

func TestInsertPurchaseMapsUniqueViolationToConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPurchaseStorage(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: constraintPurchaseGift})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx ports.PurchaseTx) error {
		return tx.InsertPurchase(context.Background(), &domain.Purchase{GiftID: uuid.New(), BuyerID: uuid.New()})
	})

	assert.ErrorIs(t, err, domain.ErrConflictRace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPurchaseOtherErrorIsNotConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPurchaseStorage(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "purchases_buyer_id_fkey"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx ports.PurchaseTx) error {
		return tx.InsertPurchase(context.Background(), &domain.Purchase{GiftID: uuid.New(), BuyerID: uuid.New()})
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflictRace)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPurchaseForDeletedGiftIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPurchaseStorage(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
		WillReturnError(&pq.Error{Code: pgForeignKeyViolation, Constraint: constraintPurchaseGiftFK})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx ports.PurchaseTx) error {
		return tx.InsertPurchase(context.Background(), &domain.Purchase{GiftID: uuid.New(), BuyerID: uuid.New()})
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrConflictRace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPurchaseStorage(db, logger.Discard())
	giftID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases WHERE gift_id = $1")).
		WithArgs(giftID.String()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	purchase := &domain.Purchase{GiftID: giftID, BuyerID: uuid.New()}
	err := store.WithinTx(context.Background(), func(tx ports.PurchaseTx) error {
		existing, err := tx.GetPurchaseByGift(context.Background(), giftID)
		if err != nil {
			return err
		}
		assert.Nil(t, existing)
		return tx.InsertPurchase(context.Background(), purchase)
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, purchase.ID)
	assert.False(t, purchase.PurchasedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePurchaseMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPurchaseStorage(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM purchases WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx ports.PurchaseTx) error {
		return tx.DeletePurchase(context.Background(), uuid.New())
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchasesForGifts(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPurchaseStorage(db, logger.Discard())

	empty, err := store.PurchasesForGifts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	giftA, giftB, buyer := uuid.New(), uuid.New(), uuid.New()
	purchasedAt := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases WHERE gift_id = ANY($1::uuid[])")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gift_id", "buyer_id", "purchased_at"}).
			AddRow(uuid.NewString(), giftA.String(), buyer.String(), purchasedAt))

	byGift, err := store.PurchasesForGifts(context.Background(), []uuid.UUID{giftA, giftB})
	require.NoError(t, err)
	require.Len(t, byGift, 1)
	assert.Equal(t, buyer, byGift[giftA].BuyerID)
	_, ok := byGift[giftB]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGiftByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGiftStorage(db, logger.Discard())

	mock.ExpectQuery(regexp.QuoteMeta("FROM gifts WHERE id = $1")).WillReturnError(sql.ErrNoRows)

	gift, err := store.GetGiftByID(context.Background(), uuid.New())
	assert.Nil(t, gift)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGiftsByOwnerOrdering(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGiftStorage(db, logger.Discard())
	owner := uuid.New()
	created := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(owner.String()).
		WillReturnRows(giftRows(domain.Gift{ID: uuid.New(), OwnerID: owner, Title: "Camera", CreatedAt: created}))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC")).
		WithArgs(owner.String()).
		WillReturnRows(giftRows())

	newest, err := store.ListGiftsByOwner(context.Background(), owner, true)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, "Camera", newest[0].Title)

	oldest, err := store.ListGiftsByOwner(context.Background(), owner, false)
	require.NoError(t, err)
	assert.NotNil(t, oldest)
	assert.Empty(t, oldest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetInferredImageURLKeepsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGiftStorage(db, logger.Discard())

	mock.ExpectExec(regexp.QuoteMeta("image_url IS NULL")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("image_url IS NULL")).WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := store.SetInferredImageURL(context.Background(), uuid.New(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = store.SetInferredImageURL(context.Background(), uuid.New(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGiftMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGiftStorage(db, logger.Discard())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE gifts")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateGift(context.Background(), &domain.Gift{ID: uuid.New(), Title: "Camera"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserEmailTaken(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStorage(db, logger.Discard())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: constraintUserEmail})

	user := &domain.User{Email: " Alice@Example.com ", Name: "Alice", PasswordHash: "x"}
	err := store.CreateUser(context.Background(), user)

	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByUsernameEscapesPattern(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStorage(db, logger.Discard())
	id := uuid.New()
	created := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE email ILIKE $1")).
		WithArgs(`a\_b@%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at"}).
			AddRow(id.String(), "a_b@example.com", "AB", "hash", created))

	user, err := store.GetUserByUsername(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "a_b", user.Username())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByUsernameNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStorage(db, logger.Discard())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE email ILIKE $1")).WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
