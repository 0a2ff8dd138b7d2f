package asset

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/config"
	"github.com/gestaozabele/acervo/internal/lock"
	"github.com/gestaozabele/acervo/internal/shopify"
)

const sentinelFound = `{"products":{"nodes":[{"id":"gid://shopify/Product/500"}]}}`

func TestProductMediaUploadAttachesToSentinel(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	remote.on("productCreateMedia", `{"productCreateMedia":{"media":[{"id":"gid://shopify/MediaImage/31","alt":"foto.jpg","mediaContentType":"IMAGE","status":"UPLOADED"}],"mediaUserErrors":[]}}`)
	store := newTestStore(t, remote, config.VariantProductMedia)

	desc, err := store.Upload(context.Background(), UploadInput{Filename: "foto.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if desc.ID.String() != "gid://shopify/MediaImage/31" || desc.Status != StatusPending || desc.MimeType != "image/jpeg" {
		t.Fatalf("descritor inesperado: %+v", desc)
	}
	if remote.vars["productCreateMedia"]["productId"] != "gid://shopify/Product/500" {
		t.Fatalf("productId = %v", remote.vars["productCreateMedia"]["productId"])
	}
	if remote.count("productCreate") != 0 {
		t.Fatalf("sentinela existente não deveria ser recriado")
	}
}

func TestProductMediaListFiltersImagesAndInvalidates(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	remote.on("productMedia", `{"product":{"media":{"nodes":[
		{"id":"gid://shopify/MediaImage/1","alt":"a.png","mediaContentType":"IMAGE","status":"READY","image":{"url":"https://cdn/a.png"},"originalSource":{"fileSize":12}},
		{"id":"gid://shopify/Video/2","mediaContentType":"VIDEO"}
	]}}}`)
	store := newTestStore(t, remote, config.VariantProductMedia)

	got := store.List(context.Background())
	if len(got) != 1 || got[0].URL != "https://cdn/a.png" || *got[0].SizeBytes != 12 {
		t.Fatalf("listagem inesperada: %+v", got)
	}

	remote.on("productMedia", `{"product":null}`)
	if got := store.List(context.Background()); len(got) != 0 {
		t.Fatalf("produto ausente deveria listar vazio")
	}
	store.List(context.Background())
	if remote.count("products") != 2 {
		t.Fatalf("sentinela deveria ser relocalizado após invalidação, consultas = %d", remote.count("products"))
	}
}

func TestProductMediaDelete(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	remote.on("productDeleteMedia", `{"productDeleteMedia":{"deletedMediaIds":["gid://shopify/MediaImage/31"],"mediaUserErrors":[]}}`)
	store := newTestStore(t, remote, config.VariantProductMedia)

	id, err := store.Delete(context.Background(), "31")
	if err != nil || id.Local() != "31" {
		t.Fatalf("Delete = %v, %v", id, err)
	}
}

func TestProductMediaGetOnlySeesSentinelMedia(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	remote.on("productMedia", `{"product":{"media":{"nodes":[
		{"id":"gid://shopify/MediaImage/1","alt":"a.png","mediaContentType":"IMAGE","status":"READY","image":{"url":"https://cdn/a.png"}}
	]}}}`)
	store := newTestStore(t, remote, config.VariantProductMedia)
	ctx := context.Background()

	got, err := store.Get(ctx, "1")
	if err != nil || got == nil || got.URL != "https://cdn/a.png" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if remote.vars["productMedia"]["id"] != "gid://shopify/Product/500" {
		t.Fatalf("consulta fora do sentinela: %v", remote.vars["productMedia"])
	}

	got, err = store.Get(ctx, "gid://shopify/MediaImage/2")
	if err != nil || got != nil {
		t.Fatalf("mídia de outro produto deveria ser nil,nil; veio %+v, %v", got, err)
	}

	remote.on("productMedia", `{"product":null}`)
	if got, err := store.Get(ctx, "1"); err != nil || got != nil {
		t.Fatalf("sentinela ausente deveria ser nil,nil; veio %+v, %v", got, err)
	}
	store.Get(ctx, "1")
	if remote.count("products") != 2 {
		t.Fatalf("Get deveria invalidar o sentinela, consultas = %d", remote.count("products"))
	}
}

func TestProductMediaWritesInvalidateRejectedSentinel(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	remote.on("productCreateMedia", `{"productCreateMedia":{"media":[],"mediaUserErrors":[{"field":["productId"],"message":"Product does not exist"}]}}`)
	remote.on("productDeleteMedia", `{"productDeleteMedia":{"deletedMediaIds":[],"mediaUserErrors":[{"field":["productId"],"message":"Product does not exist"}]}}`)
	store := newTestStore(t, remote, config.VariantProductMedia)
	ctx := context.Background()

	_, err := store.Upload(ctx, UploadInput{Filename: "foto.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")})
	var valErr *shopify.RemoteValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("esperava RemoteValidationError, veio %v", err)
	}
	if _, err := store.Delete(ctx, "31"); !errors.As(err, &valErr) {
		t.Fatalf("esperava RemoteValidationError, veio %v", err)
	}
	if remote.count("products") != 2 {
		t.Fatalf("cada escrita recusada deveria relocalizar o sentinela, consultas = %d", remote.count("products"))
	}
}

func TestSentinelCreatedWhenMissing(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", `{"products":{"nodes":[]}}`)
	remote.on("productCreate", `{"productCreate":{"product":{"id":"gid://shopify/Product/777"},"userErrors":[]}}`)
	store := newTestStore(t, remote, config.VariantProductMedia)

	ensurer := store.(ContainerEnsurer)
	if err := ensurer.EnsureContainer(context.Background()); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	input := remote.vars["productCreate"]["input"].(map[string]any)
	if input["status"] != "DRAFT" {
		t.Fatalf("sentinela deveria ser rascunho: %v", input)
	}
	if tags := input["tags"].([]string); len(tags) != 1 || tags[0] != "acervo-teste" {
		t.Fatalf("tags = %v", input["tags"])
	}
}

func TestSentinelConcurrentEnsureCreatesOnce(t *testing.T) {
	remote := newFakeRemote()
	release := make(chan struct{})
	remote.graphql["products"] = func(map[string]any) (string, error) {
		<-release
		return `{"products":{"nodes":[]}}`, nil
	}
	remote.on("productCreate", `{"productCreate":{"product":{"id":"gid://shopify/Product/777"},"userErrors":[]}}`)
	store := newTestStore(t, remote, config.VariantProductImage)
	ensurer := store.(ContainerEnsurer)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ensurer.EnsureContainer(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureContainer: %v", err)
		}
	}
	if n := remote.count("productCreate"); n != 1 {
		t.Fatalf("sentinela criado %d vezes", n)
	}
}

func TestSentinelRedisLockHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	locker := lock.NewRedis(client)
	held, err := locker.Lock(context.Background(), "product:acervo-teste", time.Minute)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer held(context.Background())

	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	store, err := New(remote, Options{Variant: config.VariantProductMedia, SentinelTag: "acervo-teste", Locker: locker, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	store.(*productMediaStore).sentinel.timeout = 250 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.(ContainerEnsurer).EnsureContainer(ctx); !errors.Is(err, lock.ErrNotAcquired) {
		t.Fatalf("esperava ErrNotAcquired, veio %v", err)
	}
	if remote.count("products") != 0 {
		t.Fatalf("sem lock não deveria consultar a Shopify")
	}
}

func TestProductImageRESTFlow(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	remote.onREST("POST /products/500/images.json", `{"image":{"id":900,"product_id":500,"src":"https://cdn.shopify.com/s/files/foto.png?v=1","alt":"foto.png","created_at":"2026-02-02T12:00:00-03:00"}}`)
	remote.onREST("GET /products/500/images.json", `{"images":[{"id":900,"src":"https://cdn.shopify.com/s/files/foto.png?v=1"}]}`)
	remote.onREST("DELETE /products/500/images/900.json", ``)
	store := newTestStore(t, remote, config.VariantProductImage)
	ctx := context.Background()

	desc, err := store.Upload(ctx, UploadInput{Filename: "foto.png", ContentType: "image/png", Data: []byte("png!")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if desc.ID.String() != "gid://shopify/ProductImage/900" || desc.Status != StatusReady || *desc.SizeBytes != 4 {
		t.Fatalf("descritor inesperado: %+v", desc)
	}

	list := store.List(ctx)
	if len(list) != 1 || list[0].DisplayName != "foto.png" || list[0].MimeType != "image/png" {
		t.Fatalf("listagem inesperada: %+v", list)
	}
	if list[0].SizeBytes != nil {
		t.Fatalf("REST não informa tamanho")
	}

	got, err := store.Get(ctx, "901")
	if err != nil || got != nil {
		t.Fatalf("imagem ausente deveria ser nil,nil; veio %v, %v", got, err)
	}

	if _, err := store.Delete(ctx, "900"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Delete(ctx, "901"); !shopify.IsNotFound(err) {
		t.Fatalf("remoção de imagem ausente deveria propagar 404, veio %v", err)
	}
	if remote.count(http.MethodPost+" /products/500/images.json") != 1 {
		t.Fatalf("POST não registrado: %v", remote.calls)
	}
}

func TestProductImageListInvalidatesOnMissingProduct(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	store := newTestStore(t, remote, config.VariantProductImage)

	if got := store.List(context.Background()); len(got) != 0 {
		t.Fatalf("esperava lista vazia")
	}
	store.List(context.Background())
	if remote.count("products") != 2 {
		t.Fatalf("404 do produto deveria invalidar o sentinela")
	}
}

func TestProductImageWritesInvalidateOnMissingProduct(t *testing.T) {
	remote := newFakeRemote()
	remote.on("products", sentinelFound)
	store := newTestStore(t, remote, config.VariantProductImage)
	ctx := context.Background()

	if _, err := store.Upload(ctx, UploadInput{Filename: "foto.png", ContentType: "image/png", Data: []byte("png!")}); !shopify.IsNotFound(err) {
		t.Fatalf("esperava 404 no upload, veio %v", err)
	}
	if _, err := store.Delete(ctx, "900"); !shopify.IsNotFound(err) {
		t.Fatalf("esperava 404 na remoção, veio %v", err)
	}
	if got, err := store.Get(ctx, "900"); err != nil || got != nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	store.List(ctx)
	if remote.count("products") != 4 {
		t.Fatalf("cada 404 deveria relocalizar o sentinela, consultas = %d", remote.count("products"))
	}
}
