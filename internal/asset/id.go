package asset

import (
	"fmt"
	"strings"
)

// Kind é o tipo de recurso da Shopify que compõe o identificador global.
type Kind string

const (
	KindGenericFile  Kind = "GenericFile"
	KindMetaobject   Kind = "Metaobject"
	KindMediaImage   Kind = "MediaImage"
	KindProductImage Kind = "ProductImage"
	KindProduct      Kind = "Product"
)

const gidPrefix = "gid://shopify/"

// ID é um identificador remoto sempre na forma qualificada gid://shopify/<Kind>/<n>.
type ID struct {
	kind  Kind
	local string
}

// ParseID aceita o número puro ("123") ou a forma qualificada do mesmo Kind.
func ParseID(kind Kind, raw string) (ID, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ID{}, fmt.Errorf("%w: vazio", ErrInvalidID)
	}

	local := value
	if strings.HasPrefix(value, gidPrefix) {
		parts := strings.Split(strings.TrimPrefix(value, gidPrefix), "/")
		if len(parts) != 2 {
			return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
		}
		if Kind(parts[0]) != kind {
			return ID{}, fmt.Errorf("%w: esperado %s, recebido %s", ErrInvalidID, kind, parts[0])
		}
		local = parts[1]
	}

	if !isDigits(local) {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return ID{kind: kind, local: local}, nil
}

// NumericID monta o identificador a partir do id numérico da API REST.
func NumericID(kind Kind, n int64) ID {
	return ID{kind: kind, local: fmt.Sprintf("%d", n)}
}

func (id ID) Kind() Kind {
	return id.kind
}

// Local devolve apenas a parte numérica.
func (id ID) Local() string {
	return id.local
}

func (id ID) IsZero() bool {
	return id.local == ""
}

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return gidPrefix + string(id.kind) + "/" + id.local
}

// MarshalText serializa na forma qualificada.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
