package model

import "time"

// User — зарегистрированный владелец проектов.
// Хранится в таблице users.
type User struct {
	// ID — UUID записи
	ID string
	// Email — уникальный адрес, используется для входа
	Email string
	// PasswordHash — bcrypt-хеш пароля
	PasswordHash string
	// CreatedAt — время регистрации
	CreatedAt time.Time
}
