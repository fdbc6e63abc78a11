package storage

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintPurchaseGift   = "uq_purchases_gift"
	constraintPurchaseGiftFK = "purchases_gift_id_fkey"
	constraintUserEmail      = "uq_users_email_lower"
)

// uniqueViolation сообщает, нарушено ли уникальное ограничение constraint.
// Пустое constraint означает любое уникальное ограничение.
func uniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// foreignKeyViolation сообщает, что вставка сослалась на удаленную строку через constraint.
func foreignKeyViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pgForeignKeyViolation && pqErr.Constraint == constraint
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
