// Пакет errors — типизированные ошибки ядра планирования.
package errors

import (
	"errors"
	"fmt"
)

// Kind — класс ошибки, определяет политику обработки (§ деградация,
// per-item отчёты, fail-closed).
type Kind string

const (
	// Источник (стор или удалённый API) недоступен. Восстановимо:
	// агрегатор деградирует до частичного результата.
	KindSourceUnavailable Kind = "SOURCE_UNAVAILABLE"
	// Запись отклонена ограничением уникальности/состояния
	// (например, двойное назначение гида). Восстановимо: попадает
	// в отчёт по элементу, батч продолжается.
	KindConflictViolation Kind = "CONFLICT_VIOLATION"
	// Невалидный фильтр или вход. Фатально для одного вызова.
	KindValidation Kind = "VALIDATION"
	// Локальный журнал недоступен. Фатально: у него нет фолбэка.
	KindFatalStore Kind = "FATAL_STORE"
)

// Error — ошибка с классом, операцией и компонентом-источником.
type Error struct {
	Kind      Kind
	Op        string // операция: "aggregate", "sync_all", "auto_assign", ...
	Component string // компонент: "local_store", "cache_store", "remote", ...
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Component != "" {
		msg += fmt.Sprintf(" (%s)", e.Component)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func SourceUnavailable(op, component string, err error) *Error {
	return &Error{Kind: KindSourceUnavailable, Op: op, Component: component, Err: err}
}

func ConflictViolation(op string, err error) *Error {
	return &Error{Kind: KindConflictViolation, Op: op, Err: err}
}

func Validation(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func FatalStore(op, component string, err error) *Error {
	return &Error{Kind: KindFatalStore, Op: op, Component: component, Err: err}
}

// HasKind — проверка класса по всей цепочке обёрток.
func HasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsSourceUnavailable(err error) bool { return HasKind(err, KindSourceUnavailable) }
func IsConflictViolation(err error) bool { return HasKind(err, KindConflictViolation) }
func IsValidation(err error) bool        { return HasKind(err, KindValidation) }
func IsFatalStore(err error) bool        { return HasKind(err, KindFatalStore) }
