package model

import "time"

// Project — проект, собирающий фидбек по публичной ссылке.
// Хранится в таблице projects.
type Project struct {
	// ID — UUID записи
	ID string
	// OwnerID — UUID владельца (users.id)
	OwnerID string
	// Name — название проекта
	Name string
	// Description — описание проекта
	Description string
	// ProductURL — ссылка на продукт
	ProductURL string
	// PublicSlug — уникальный slug для публичной формы фидбека
	PublicSlug string
	// FeedbackExpiryDays — срок приёма фидбека в днях с момента создания
	FeedbackExpiryDays int
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// ExpiryDate возвращает дату окончания приёма фидбека:
// created_at + feedback_expiry_days.
func (p *Project) ExpiryDate() time.Time {
	return p.CreatedAt.Add(time.Duration(p.FeedbackExpiryDays) * 24 * time.Hour)
}

// IsExpired сообщает, истёк ли срок приёма фидбека на момент now.
func (p *Project) IsExpired(now time.Time) bool {
	return now.After(p.ExpiryDate())
}
