// validate.go — декодирование и валидация тел запросов.
// Структуры запросов описывают ограничения тегами validate,
// проверка — через go-playground/validator.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate — общий инстанс валидатора. Потокобезопасен, кэширует метаданные структур.
var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeAndValidate декодирует JSON-тело запроса в dst и проверяет теги validate.
// Возвращает человекочитаемое сообщение об ошибке.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("некорректный JSON: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return errors.New(formatValidationErrors(verrs))
		}
		return err
	}
	return nil
}

// formatValidationErrors собирает сообщение из нарушенных ограничений.
func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("поле %s обязательно", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("поле %s должно быть корректным email", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("поле %s короче %s символов", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("поле %s длиннее %s символов", fe.Field(), fe.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("поле %s должно быть корректным URL", fe.Field()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("поле %s должно быть не меньше %s", fe.Field(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("поле %s должно быть не больше %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("поле %s не прошло проверку %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
