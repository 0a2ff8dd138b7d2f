package util

import (
	"errors"
	"strings"
)

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}

// RequireMaxBytes garante tamanho entre 1 e limit bytes.
func RequireMaxBytes(size, limit int64, field string) error {
	if size <= 0 {
		return errors.New(field + " vazio")
	}
	if limit > 0 && size > limit {
		return errors.New(field + " excede o limite configurado")
	}
	return nil
}
