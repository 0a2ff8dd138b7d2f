package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewHandle gera um identificador legível e único com o prefixo informado.
func NewHandle(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
