// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	// ErrForbidden — доступ к чужому ресурсу запрещён.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrExpired — окно приёма отзывов проекта закрыто.
	ErrExpired = errors.New("приём отзывов завершён")
	// ErrInvalidTransition — недопустимый переход статуса отзыва.
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrNoteRequired — для перехода требуется комментарий.
	ErrNoteRequired = errors.New("для перехода в RESOLVED требуется комментарий")
	// ErrStaleStatus — статус изменён конкурентно, переход не применён.
	ErrStaleStatus = errors.New("статус отзыва изменён другим запросом")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
