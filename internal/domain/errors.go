package domain

import "errors"

var (
	// ErrNotFound — запрошенная сущность не существует.
	ErrNotFound = errors.New("not found")
	// ErrForbidden — у пользователя нет прав на изменение.
	ErrForbidden = errors.New("forbidden")
	// ErrBusinessRule — нарушено бизнес-правило (покупка своего подарка и т.п.).
	ErrBusinessRule = errors.New("business rule violation")
	// ErrConflictRace — уникальное ограничение отклонило конкурирующую запись.
	ErrConflictRace = errors.New("conflicting concurrent write")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
)
