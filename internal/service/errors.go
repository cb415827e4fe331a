package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState переход статуса не вперёд по цепочке
	ErrInvalidState = errors.New("invalid state")
	// ErrOrderIDConflict номер заказа не удалось выделить за отведённые попытки
	ErrOrderIDConflict = errors.New("order id conflict")
)

// ValidationError ошибка входных данных с именем поля
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// PersistenceError запись заказа или позиций не удалась
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
