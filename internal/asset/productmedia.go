package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/shopify"
)

const mediaImageFields = `
    ... on MediaImage {
      id
      alt
      mediaContentType
      status
      createdAt
      mimeType
      image {
        url
      }
      originalSource {
        fileSize
      }
    }`

const productCreateMediaMutation = `
mutation productCreateMedia($productId: ID!, $media: [CreateMediaInput!]!) {
  productCreateMedia(productId: $productId, media: $media) {
    media {` + mediaImageFields + `
    }
    mediaUserErrors {
      field
      message
    }
  }
}`

const productMediaListQuery = `
query productMedia($id: ID!, $first: Int!) {
  product(id: $id) {
    media(first: $first) {
      nodes {` + mediaImageFields + `
      }
    }
  }
}`

const productDeleteMediaMutation = `
mutation productDeleteMedia($productId: ID!, $mediaIds: [ID!]!) {
  productDeleteMedia(productId: $productId, mediaIds: $mediaIds) {
    deletedMediaIds
    mediaUserErrors {
      field
      message
    }
  }
}`

type mediaImageNode struct {
	ID               string    `json:"id"`
	Alt              string    `json:"alt"`
	MediaContentType string    `json:"mediaContentType"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	MimeType         string    `json:"mimeType"`
	Image            *struct {
		URL string `json:"url"`
	} `json:"image"`
	OriginalSource *struct {
		FileSize *int64 `json:"fileSize"`
	} `json:"originalSource"`
}

// productMediaStore anexa imagens como mídia de um produto sentinela.
type productMediaStore struct {
	remote   Remote
	opts     Options
	log      zerolog.Logger
	staging  stagedUpload
	sentinel *container
}

func newProductMediaStore(remote Remote, opts Options, log zerolog.Logger) *productMediaStore {
	return &productMediaStore{
		remote:   remote,
		opts:     opts,
		log:      log,
		staging:  stagedUpload{remote: remote, resource: shopify.ResourceImage},
		sentinel: newSentinelProduct(remote, opts.Variant, opts.SentinelTag, opts.Locker, log),
	}
}

func (s *productMediaStore) Variant() string {
	return s.opts.Variant
}

// EnsureContainer garante que o produto sentinela exista.
func (s *productMediaStore) EnsureContainer(ctx context.Context) error {
	_, err := s.sentinel.get(ctx)
	return err
}

func (s *productMediaStore) Upload(ctx context.Context, in UploadInput) (*Descriptor, error) {
	if err := in.validate(s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}
	productID, err := s.sentinel.get(ctx)
	if err != nil {
		return nil, err
	}

	return s.staging.run(ctx, in, func(ctx context.Context, resourceURL string, in UploadInput) (*Descriptor, error) {
		var resp struct {
			ProductCreateMedia struct {
				Media           []mediaImageNode    `json:"media"`
				MediaUserErrors []shopify.UserError `json:"mediaUserErrors"`
			} `json:"productCreateMedia"`
		}
		vars := map[string]any{
			"productId": productID,
			"media": []map[string]any{{
				"originalSource":   resourceURL,
				"alt":              in.Filename,
				"mediaContentType": "IMAGE",
			}},
		}
		if err := s.remote.GraphQL(ctx, "productCreateMedia", productCreateMediaMutation, vars, &resp); err != nil {
			return nil, err
		}
		if err := shopify.CheckUserErrors("productCreateMedia", resp.ProductCreateMedia.MediaUserErrors); err != nil {
			if rejectsProduct(err) {
				s.sentinel.invalidate(productID)
			}
			return nil, err
		}
		if len(resp.ProductCreateMedia.Media) == 0 {
			return nil, fmt.Errorf("productCreateMedia: nenhuma mídia retornada")
		}
		return toMediaDescriptor(resp.ProductCreateMedia.Media[0])
	})
}

func (s *productMediaStore) List(ctx context.Context) []Descriptor {
	productID, err := s.sentinel.get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("produto sentinela indisponível, devolvendo lista vazia")
		return []Descriptor{}
	}

	nodes, err := s.media(ctx, productID)
	if err != nil {
		s.log.Warn().Err(err).Msg("listagem indisponível, devolvendo lista vazia")
		return []Descriptor{}
	}

	out := make([]Descriptor, 0, len(nodes))
	for _, node := range nodes {
		if node.MediaContentType != "IMAGE" {
			continue
		}
		desc, err := toMediaDescriptor(node)
		if err != nil {
			continue
		}
		out = append(out, *desc)
	}
	return out
}

// Get só enxerga mídias anexadas ao produto sentinela.
func (s *productMediaStore) Get(ctx context.Context, raw string) (*Descriptor, error) {
	id, err := ParseID(KindMediaImage, raw)
	if err != nil {
		return nil, err
	}
	productID, err := s.sentinel.get(ctx)
	if err != nil {
		return nil, err
	}

	nodes, err := s.media(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		if node.ID == id.String() && node.MediaContentType == "IMAGE" {
			return toMediaDescriptor(node)
		}
	}
	return nil, nil
}

// media lista as mídias do sentinela; produto inexistente descarta o id em cache.
func (s *productMediaStore) media(ctx context.Context, productID string) ([]mediaImageNode, error) {
	var resp struct {
		Product *struct {
			Media struct {
				Nodes []mediaImageNode `json:"nodes"`
			} `json:"media"`
		} `json:"product"`
	}
	vars := map[string]any{"id": productID, "first": listPageSize}
	if err := s.remote.GraphQL(ctx, "productMedia", productMediaListQuery, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Product == nil {
		s.sentinel.invalidate(productID)
		return nil, nil
	}
	return resp.Product.Media.Nodes, nil
}

func (s *productMediaStore) Delete(ctx context.Context, raw string) (ID, error) {
	id, err := ParseID(KindMediaImage, raw)
	if err != nil {
		return ID{}, err
	}
	productID, err := s.sentinel.get(ctx)
	if err != nil {
		return ID{}, err
	}

	var resp struct {
		ProductDeleteMedia *struct {
			DeletedMediaIDs []string            `json:"deletedMediaIds"`
			MediaUserErrors []shopify.UserError `json:"mediaUserErrors"`
		} `json:"productDeleteMedia"`
	}
	vars := map[string]any{"productId": productID, "mediaIds": []string{id.String()}}
	if err := s.remote.GraphQL(ctx, "productDeleteMedia", productDeleteMediaMutation, vars, &resp); err != nil {
		return ID{}, err
	}
	if resp.ProductDeleteMedia == nil {
		return ID{}, fmt.Errorf("productDeleteMedia: resposta vazia")
	}
	if err := shopify.CheckUserErrors("productDeleteMedia", resp.ProductDeleteMedia.MediaUserErrors); err != nil {
		if rejectsProduct(err) {
			s.sentinel.invalidate(productID)
		}
		return ID{}, err
	}
	return confirmDeleted(id, resp.ProductDeleteMedia.DeletedMediaIDs)
}

func toMediaDescriptor(node mediaImageNode) (*Descriptor, error) {
	id, err := ParseID(KindMediaImage, node.ID)
	if err != nil {
		return nil, err
	}
	desc := &Descriptor{
		ID:          id,
		DisplayName: node.Alt,
		MimeType:    node.MimeType,
		CreatedAt:   node.CreatedAt,
		Status:      normalizeStatus(node.Status),
	}
	if node.Image != nil {
		desc.URL = node.Image.URL
	}
	if node.OriginalSource != nil {
		desc.SizeBytes = node.OriginalSource.FileSize
	}
	return desc, nil
}

// rejectsProduct informa se a mutation recusou o productId do sentinela.
func rejectsProduct(err error) bool {
	var valErr *shopify.RemoteValidationError
	if !errors.As(err, &valErr) {
		return false
	}
	for _, ue := range valErr.Errors {
		if len(ue.Field) > 0 && ue.Field[0] == "productId" {
			return true
		}
	}
	return false
}
