package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind — категория ошибки, возвращаемая клиенту в поле "kind"
type Kind string

const (
	KindUnauthenticated   Kind = "Unauthenticated"
	KindInvalidCredential Kind = "InvalidCredential"
	KindForbidden         Kind = "Forbidden"
	KindNotFound          Kind = "NotFound"
	KindInvalidState      Kind = "InvalidState"
	KindInvalidTransition Kind = "InvalidTransition"
	KindConflict          Kind = "Conflict"
	KindValidation        Kind = "ValidationError"
	KindInternal          Kind = "Internal"
)

// Error несёт категорию и сообщение для структурированного ответа
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthenticated(message string) *Error   { return New(KindUnauthenticated, message) }
func InvalidCredential(message string) *Error { return New(KindInvalidCredential, message) }
func Forbidden(message string) *Error         { return New(KindForbidden, message) }
func NotFound(message string) *Error          { return New(KindNotFound, message) }
func InvalidState(message string) *Error      { return New(KindInvalidState, message) }
func InvalidTransition(message string) *Error { return New(KindInvalidTransition, message) }
func Conflict(message string) *Error          { return New(KindConflict, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }

func statusCode(kind Kind) int {
	switch kind {
	case KindUnauthenticated, KindInvalidCredential:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState, KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Write сериализует ошибку в ответ. Неизвестные ошибки отдаются как Internal
// без деталей — подробности остаются в логах вызывающей стороны.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = New(KindInternal, "internal server error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(e.Kind))
	json.NewEncoder(w).Encode(e)
}

// IsKind сообщает, относится ли ошибка к указанной категории
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
