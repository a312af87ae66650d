package model

import "time"

// FeedbackType — категория фидбека.
type FeedbackType string

const (
	// TypeBug — сообщение об ошибке
	TypeBug FeedbackType = "BUG"
	// TypeFeature — запрос новой функциональности
	TypeFeature FeedbackType = "FEATURE"
	// TypeConfusion — непонятное поведение продукта
	TypeConfusion FeedbackType = "CONFUSION"
	// TypeSuggestion — предложение по улучшению
	TypeSuggestion FeedbackType = "SUGGESTION"
)

// ValidFeedbackType проверяет, является ли значение допустимой категорией.
func ValidFeedbackType(t string) bool {
	switch FeedbackType(t) {
	case TypeBug, TypeFeature, TypeConfusion, TypeSuggestion:
		return true
	}
	return false
}

// FeedbackStatus — статус фидбека в workflow триажа.
type FeedbackStatus string

const (
	// StatusNew — новый фидбек, ещё не разобран
	StatusNew FeedbackStatus = "NEW"
	// StatusAccepted — принят в работу
	StatusAccepted FeedbackStatus = "ACCEPTED"
	// StatusRejected — отклонён (терминальный)
	StatusRejected FeedbackStatus = "REJECTED"
	// StatusResolved — решён (терминальный)
	StatusResolved FeedbackStatus = "RESOLVED"
)

// ValidFeedbackStatus проверяет, является ли значение допустимым статусом.
func ValidFeedbackStatus(s string) bool {
	switch FeedbackStatus(s) {
	case StatusNew, StatusAccepted, StatusRejected, StatusResolved:
		return true
	}
	return false
}

// Feedback — одно структурированное сообщение от публичного отправителя.
// Хранится в таблице feedback.
type Feedback struct {
	// ID — UUID записи
	ID string
	// ProjectID — UUID проекта (projects.id)
	ProjectID string
	// Type — категория фидбека
	Type FeedbackType
	// Description — свободный текст
	Description string
	// Status — текущий статус workflow
	Status FeedbackStatus
	// SubmitterEmail — email отправителя (может быть nil)
	SubmitterEmail *string
	// CreatedAt — время отправки
	CreatedAt time.Time
	// ResolvedAt — время перехода в терминальный статус (может быть nil)
	ResolvedAt *time.Time
}

// StatusChange — запись истории изменения статуса фидбека.
// Хранится в таблице feedback_status_history.
type StatusChange struct {
	// ID — UUID записи
	ID string
	// FeedbackID — UUID фидбека
	FeedbackID string
	// OldStatus — статус до перехода
	OldStatus FeedbackStatus
	// NewStatus — статус после перехода
	NewStatus FeedbackStatus
	// Note — комментарий владельца (может быть nil)
	Note *string
	// ChangedAt — время перехода
	ChangedAt time.Time
}
