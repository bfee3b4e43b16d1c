package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indica entidade inexistente ou não visível para quem chamou
	ErrNotFound = errors.New("recurso não encontrado")

	// ErrValidation indica entrada inválida ou violação de invariante
	ErrValidation = errors.New("validação falhou")

	// ErrUnauthorized indica que o tipo/papel do usuário não permite a operação
	ErrUnauthorized = errors.New("operação não permitida para este usuário")

	// ErrRateLimited indica que a cota semanal de change requests foi atingida
	ErrRateLimited = errors.New("limite de solicitações excedido")

	// ErrDependencyFailed indica falha de um colaborador best-effort (estimador, e-mail)
	ErrDependencyFailed = errors.New("dependência externa falhou")
)

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Invalid wraps ErrValidation with a message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Forbidden wraps ErrUnauthorized with a message.
func Forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// RateLimitError carries the next instant a new request is permitted.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: nova solicitação permitida a partir de %s",
		ErrRateLimited.Error(), e.RetryAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// DependencyError wraps a failure from a best-effort collaborator.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrDependencyFailed.Error(), e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependencyFailed, e.Err}
}
