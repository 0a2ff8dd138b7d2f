package http

import (
	"errors"
	"net/http"

	"github.com/gestaozabele/acervo/internal/asset"
	"github.com/gestaozabele/acervo/internal/shopify"
)

// statusFor traduz erros do acervo em status HTTP da API JSON.
func statusFor(err error) int {
	var (
		tooLarge   *asset.PayloadTooLargeError
		validation *shopify.RemoteValidationError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, asset.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, asset.ErrInvalidID), shopify.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorChain lista as mensagens de cada camada do erro, da mais externa à causa.
func errorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}
