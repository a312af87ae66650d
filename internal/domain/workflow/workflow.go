// Пакет workflow — конечный автомат статусов фидбека.
//
// Жизненный цикл: NEW → ACCEPTED → RESOLVED, NEW → REJECTED.
// REJECTED и RESOLVED — терминальные статусы, переходы из них запрещены.
// Переход в RESOLVED требует непустого комментария.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bigkaa/gofeedhub/internal/domain/model"
)

// Ошибки валидации переходов.
var (
	// ErrInvalidTransition — переход между статусами не разрешён.
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrNoteRequired — для перехода в RESOLVED требуется комментарий.
	ErrNoteRequired = errors.New("для перехода в RESOLVED требуется непустой комментарий")
)

// validTransitions — матрица допустимых переходов.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
var validTransitions = map[model.FeedbackStatus]map[model.FeedbackStatus]bool{
	model.StatusNew:      {model.StatusAccepted: true, model.StatusRejected: true},
	model.StatusAccepted: {model.StatusResolved: true},
	model.StatusRejected: {}, // Терминальный статус
	model.StatusResolved: {}, // Терминальный статус
}

// CanTransition сообщает, разрешён ли переход from → to.
func CanTransition(from, to model.FeedbackStatus) bool {
	return validTransitions[from][to]
}

// Validate проверяет переход from → to вместе с комментарием.
// note nil или пустой после trim считается отсутствующим.
func Validate(from, to model.FeedbackStatus, note *string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	if to == model.StatusResolved && !hasNote(note) {
		return ErrNoteRequired
	}
	return nil
}

// IsTerminal сообщает, является ли статус терминальным.
func IsTerminal(s model.FeedbackStatus) bool {
	return len(validTransitions[s]) == 0
}

// AllowedTargets возвращает список статусов, в которые разрешён переход из s.
// Порядок фиксирован для детерминированного вывода.
func AllowedTargets(s model.FeedbackStatus) []model.FeedbackStatus {
	ordered := []model.FeedbackStatus{
		model.StatusAccepted, model.StatusRejected, model.StatusResolved,
	}
	var result []model.FeedbackStatus
	for _, to := range ordered {
		if validTransitions[s][to] {
			result = append(result, to)
		}
	}
	return result
}

// hasNote проверяет наличие непустого комментария.
func hasNote(note *string) bool {
	return note != nil && strings.TrimSpace(*note) != ""
}
