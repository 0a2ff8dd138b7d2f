package asset

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/shopify"
)

type productImage struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Src       string    `json:"src"`
	Alt       string    `json:"alt"`
	CreatedAt time.Time `json:"created_at"`
}

type productImageEnvelope struct {
	Image *productImage `json:"image"`
}

// productImageStore usa a API REST de imagens de produto, com anexo em base64.
type productImageStore struct {
	remote   Remote
	opts     Options
	log      zerolog.Logger
	sentinel *container
}

func newProductImageStore(remote Remote, opts Options, log zerolog.Logger) *productImageStore {
	return &productImageStore{
		remote:   remote,
		opts:     opts,
		log:      log,
		sentinel: newSentinelProduct(remote, opts.Variant, opts.SentinelTag, opts.Locker, log),
	}
}

func (s *productImageStore) Variant() string {
	return s.opts.Variant
}

// EnsureContainer garante que o produto sentinela exista.
func (s *productImageStore) EnsureContainer(ctx context.Context) error {
	_, err := s.sentinel.get(ctx)
	return err
}

// productPath devolve o prefixo REST do produto sentinela e o gid usado para resolvê-lo.
func (s *productImageStore) productPath(ctx context.Context) (string, string, error) {
	gid, err := s.sentinel.get(ctx)
	if err != nil {
		return "", "", err
	}
	product, err := ParseID(KindProduct, gid)
	if err != nil {
		return "", "", fmt.Errorf("produto sentinela: %w", err)
	}
	return "/products/" + product.Local(), gid, nil
}

func (s *productImageStore) Upload(ctx context.Context, in UploadInput) (*Descriptor, error) {
	if err := in.validate(s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}
	prefix, gid, err := s.productPath(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"image": map[string]any{
		"attachment": base64.StdEncoding.EncodeToString(in.Data),
		"filename":   in.Filename,
		"alt":        in.Filename,
	}}
	var resp productImageEnvelope
	if err := s.remote.REST(ctx, http.MethodPost, prefix+"/images.json", body, &resp); err != nil {
		s.invalidateOnNotFound(gid, err)
		return nil, fmt.Errorf("registrar imagem: %w", err)
	}
	if resp.Image == nil {
		return nil, fmt.Errorf("product images: imagem não retornada")
	}

	desc := s.toDescriptor(*resp.Image)
	desc.complete(in)
	return desc, nil
}

func (s *productImageStore) List(ctx context.Context) []Descriptor {
	prefix, gid, err := s.productPath(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("produto sentinela indisponível, devolvendo lista vazia")
		return []Descriptor{}
	}

	var resp struct {
		Images []productImage `json:"images"`
	}
	if err := s.remote.REST(ctx, http.MethodGet, prefix+"/images.json", nil, &resp); err != nil {
		s.invalidateOnNotFound(gid, err)
		s.log.Warn().Err(err).Msg("listagem indisponível, devolvendo lista vazia")
		return []Descriptor{}
	}

	out := make([]Descriptor, 0, len(resp.Images))
	for _, img := range resp.Images {
		out = append(out, *s.toDescriptor(img))
	}
	return out
}

func (s *productImageStore) Get(ctx context.Context, raw string) (*Descriptor, error) {
	id, err := ParseID(KindProductImage, raw)
	if err != nil {
		return nil, err
	}
	prefix, gid, err := s.productPath(ctx)
	if err != nil {
		return nil, err
	}

	var resp productImageEnvelope
	if err := s.remote.REST(ctx, http.MethodGet, prefix+"/images/"+id.Local()+".json", nil, &resp); err != nil {
		if shopify.IsNotFound(err) {
			s.invalidateOnNotFound(gid, err)
			return nil, nil
		}
		return nil, err
	}
	if resp.Image == nil {
		return nil, nil
	}
	return s.toDescriptor(*resp.Image), nil
}

func (s *productImageStore) Delete(ctx context.Context, raw string) (ID, error) {
	id, err := ParseID(KindProductImage, raw)
	if err != nil {
		return ID{}, err
	}
	prefix, gid, err := s.productPath(ctx)
	if err != nil {
		return ID{}, err
	}

	if err := s.remote.REST(ctx, http.MethodDelete, prefix+"/images/"+id.Local()+".json", nil, nil); err != nil {
		s.invalidateOnNotFound(gid, err)
		return ID{}, err
	}
	return id, nil
}

// invalidateOnNotFound descarta o sentinela em cache após um 404.
// A REST não distingue produto ausente de imagem ausente; no pior caso a
// próxima chamada relocaliza um produto que ainda existe.
func (s *productImageStore) invalidateOnNotFound(gid string, err error) {
	if shopify.IsNotFound(err) {
		s.sentinel.invalidate(gid)
	}
}

func (s *productImageStore) toDescriptor(img productImage) *Descriptor {
	name := img.Alt
	if name == "" {
		name = filenameFromURL(img.Src)
	}
	return &Descriptor{
		ID:          NumericID(KindProductImage, img.ID),
		URL:         img.Src,
		DisplayName: name,
		MimeType:    mime.TypeByExtension(path.Ext(filenameFromURL(img.Src))),
		CreatedAt:   img.CreatedAt,
		Status:      StatusReady,
	}
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(u.Path)
}
