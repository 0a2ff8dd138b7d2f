package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError indica credencial ou identificador obrigatório ausente.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "shopify: configuração incompleta, defina " + strings.Join(e.Missing, " e ")
}

// UserError é um erro de campo devolvido por uma mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// RemoteValidationError agrega os userErrors de uma mutation.
type RemoteValidationError struct {
	Operation string
	Errors    []UserError
}

func (e *RemoteValidationError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		msg := strings.TrimSpace(ue.Message)
		if msg == "" {
			msg = "erro desconhecido"
		}
		if len(ue.Field) > 0 {
			msg = strings.Join(ue.Field, ".") + ": " + msg
		}
		messages = append(messages, msg)
	}
	return fmt.Sprintf("shopify %s: %s", e.Operation, strings.Join(messages, "; "))
}

// CheckUserErrors devolve *RemoteValidationError quando a lista não está vazia.
func CheckUserErrors(operation string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return &RemoteValidationError{Operation: operation, Errors: errs}
}

// TransferError descreve falha no envio dos bytes ao destino temporário.
type TransferError struct {
	StatusCode int
	Body       string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("shopify: transferência falhou (%d): %s", e.StatusCode, e.Body)
}

// StatusError representa resposta HTTP não-2xx da Admin API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("shopify api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("shopify api: status %d: %s", e.StatusCode, e.Body)
}

// GraphQLError agrega a lista "errors" de topo de uma resposta GraphQL.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "shopify graphql: resposta sem dados"
	}
	return "shopify graphql: " + strings.Join(e.Messages, "; ")
}

// IsNotFound informa se err corresponde a um 404 da Admin API.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == 404
}
