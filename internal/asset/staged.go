package asset

import (
	"context"
	"fmt"

	"github.com/gestaozabele/acervo/internal/shopify"
)

// registerFunc registra na Shopify o objeto já transferido para resourceURL.
type registerFunc func(ctx context.Context, resourceURL string, in UploadInput) (*Descriptor, error)

// stagedUpload executa preparar destino → transferir bytes → registrar.
// Não há retry; um destino criado e não registrado fica abandonado na Shopify.
type stagedUpload struct {
	remote   Remote
	resource shopify.StagedResource
}

func (s stagedUpload) run(ctx context.Context, in UploadInput, register registerFunc) (*Descriptor, error) {
	target, err := s.remote.CreateStagedUpload(ctx, shopify.StagedUploadInput{
		Filename: in.Filename,
		MimeType: in.ContentType,
		FileSize: int64(len(in.Data)),
		Resource: s.resource,
	})
	if err != nil {
		return nil, fmt.Errorf("preparar upload: %w", err)
	}

	if err := s.remote.Transfer(ctx, target, in.Filename, in.ContentType, in.Data); err != nil {
		return nil, fmt.Errorf("transferir arquivo: %w", err)
	}

	desc, err := register(ctx, target.ResourceURL, in)
	if err != nil {
		return nil, fmt.Errorf("registrar arquivo: %w", err)
	}
	desc.complete(in)
	return desc, nil
}
