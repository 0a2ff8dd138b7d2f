package asset

import (
	"fmt"
	"strings"
	"time"

	"github.com/gestaozabele/acervo/internal/util"
)

// Status é o estado de processamento reportado pela Shopify.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Descriptor é a visão normalizada de uma imagem remota. Nunca é persistido.
type Descriptor struct {
	ID          ID        `json:"id"`
	URL         string    `json:"url"`
	DisplayName string    `json:"displayName"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   *int64    `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      Status    `json:"status"`
}

// UploadInput descreve um arquivo a enviar.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Content são os bytes de uma imagem guardada inline.
type Content struct {
	Data        []byte
	MimeType    string
	DisplayName string
}

func (in UploadInput) validate(maxBytes int64) error {
	if err := util.RequireString(in.Filename, "nome do arquivo"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := util.RequireString(in.ContentType, "content type"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := util.RequireMaxBytes(int64(len(in.Data)), maxBytes, "arquivo"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// complete preenche o que a resposta remota ainda não informa.
func (d *Descriptor) complete(in UploadInput) {
	if d.SizeBytes == nil {
		size := int64(len(in.Data))
		d.SizeBytes = &size
	}
	if d.MimeType == "" {
		d.MimeType = in.ContentType
	}
	if d.DisplayName == "" {
		d.DisplayName = in.Filename
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
}

// normalizeStatus converte FileStatus/MediaStatus da Shopify.
func normalizeStatus(remote string) Status {
	switch strings.ToUpper(strings.TrimSpace(remote)) {
	case "READY":
		return StatusReady
	case "FAILED":
		return StatusFailed
	case "PROCESSING":
		return StatusProcessing
	default:
		return StatusPending
	}
}
