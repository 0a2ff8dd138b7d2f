package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/config"
	"github.com/gestaozabele/acervo/internal/lock"
	"github.com/gestaozabele/acervo/internal/shopify"
)

// listPageSize é o máximo de itens pedido em uma única listagem.
const listPageSize = 250

// Remote é o subconjunto do cliente Shopify usado pelas variantes.
type Remote interface {
	Shop() string
	GraphQL(ctx context.Context, operation, query string, variables map[string]any, out any) error
	REST(ctx context.Context, method, path string, body, out any) error
	CreateStagedUpload(ctx context.Context, input shopify.StagedUploadInput) (*shopify.StagedTarget, error)
	Transfer(ctx context.Context, target *shopify.StagedTarget, filename, contentType string, data []byte) error
}

// Store é o conjunto de operações comum a todas as variantes.
// List nunca falha: problemas remotos viram lista vazia.
// Get devolve nil quando o recurso não existe.
type Store interface {
	Variant() string
	Upload(ctx context.Context, in UploadInput) (*Descriptor, error)
	List(ctx context.Context) []Descriptor
	Get(ctx context.Context, id string) (*Descriptor, error)
	Delete(ctx context.Context, id string) (ID, error)
}

// ContainerEnsurer é implementado pelas variantes que dependem de um recurso sentinela.
type ContainerEnsurer interface {
	EnsureContainer(ctx context.Context) error
}

// ContentReader é implementado pelas variantes que guardam os bytes na própria Shopify.
type ContentReader interface {
	Content(ctx context.Context, id string) (*Content, error)
}

// Options parametriza a construção de um Store.
type Options struct {
	Variant        string
	MaxUploadBytes int64
	InlineMaxBytes int64
	SentinelTag    string
	MetaobjectType string
	Locker         lock.Locker
	Logger         zerolog.Logger
	Now            func() time.Time
}

// New cria o Store da variante configurada.
func New(remote Remote, opts Options) (Store, error) {
	if opts.Variant == "" {
		opts.Variant = config.VariantFiles
	}
	if opts.Locker == nil {
		opts.Locker = lock.Local{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.InlineMaxBytes <= 0 {
		opts.InlineMaxBytes = 50000
	}
	if opts.SentinelTag == "" {
		opts.SentinelTag = "acervo-storage"
	}
	if opts.MetaobjectType == "" {
		opts.MetaobjectType = "acervo_image"
	}
	logger := opts.Logger.With().Str("component", "assets").Str("variant", opts.Variant).Logger()

	switch opts.Variant {
	case config.VariantFiles:
		return newFileStore(remote, opts, logger), nil
	case config.VariantMetaobject:
		return newMetaobjectStore(remote, opts, logger), nil
	case config.VariantProductMedia:
		return newProductMediaStore(remote, opts, logger), nil
	case config.VariantProductImage:
		return newProductImageStore(remote, opts, logger), nil
	default:
		return nil, fmt.Errorf("assets: variante %q não suportada", opts.Variant)
	}
}
