package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID é retornado para identificadores malformados, antes de qualquer chamada remota.
	ErrInvalidID = errors.New("identificador inválido")
	// ErrInvalidInput é retornado quando o upload falha na validação local.
	ErrInvalidInput = errors.New("upload inválido")
)

// PayloadTooLargeError indica payload acima do teto do campo inline.
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("arquivo de %d bytes excede o limite inline de %d bytes", e.Size, e.Limit)
}
