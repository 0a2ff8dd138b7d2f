package asset

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gestaozabele/acervo/internal/lock"
	"github.com/gestaozabele/acervo/internal/metrics"
	"github.com/gestaozabele/acervo/internal/shopify"
)

const (
	containerLockTTL        = 30 * time.Second
	containerResolveTimeout = containerLockTTL
)

// container resolve e guarda o id do recurso sentinela de uma variante.
// Chamadas concorrentes compartilham a mesma resolução; entre instâncias,
// o Locker impede que duas criem o sentinela ao mesmo tempo.
type container struct {
	variant string
	key     string
	lookup  func(ctx context.Context) (string, error)
	create  func(ctx context.Context) (string, error)
	locker  lock.Locker
	log     zerolog.Logger
	timeout time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	id    string
}

// get devolve o id do sentinela, resolvendo-o se ainda não estiver em memória.
// A resolução compartilhada não herda o cancelamento de quem a iniciou;
// cada chamador só deixa de esperar quando o próprio contexto termina.
func (c *container) get(ctx context.Context) (string, error) {
	if id := c.cached(); id != "" {
		return id, nil
	}

	ch := c.group.DoChan(c.key, func() (any, error) {
		if id := c.cached(); id != "" {
			return id, nil
		}
		resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.resolve(resolveCtx)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("contêiner %s: %w", c.key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *container) resolve(ctx context.Context) (string, error) {
	unlock, err := c.locker.Lock(ctx, c.key, containerLockTTL)
	if err != nil {
		metrics.RecordContainerEnsure(c.variant, "error")
		return "", fmt.Errorf("contêiner %s: %w", c.key, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			c.log.Warn().Err(err).Str("container", c.key).Msg("falha ao liberar lock do contêiner")
		}
	}()

	result := "found"
	id, err := c.lookup(ctx)
	if err != nil {
		metrics.RecordContainerEnsure(c.variant, "error")
		return "", fmt.Errorf("localizar contêiner %s: %w", c.key, err)
	}
	if id == "" {
		id, err = c.create(ctx)
		if err != nil {
			metrics.RecordContainerEnsure(c.variant, "error")
			return "", fmt.Errorf("criar contêiner %s: %w", c.key, err)
		}
		result = "created"
		c.log.Info().Str("container", c.key).Str("id", id).Msg("contêiner sentinela criado")
	}

	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
	metrics.RecordContainerEnsure(c.variant, result)
	return id, nil
}

func (c *container) cached() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// invalidate descarta o id em memória se ele ainda for o informado.
func (c *container) invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id == stale {
		c.id = ""
		c.log.Warn().Str("container", c.key).Str("id", stale).Msg("contêiner sentinela não encontrado, será recriado")
	}
}

const sentinelProductQuery = `
query sentinelProduct($query: String!) {
  products(first: 1, query: $query) {
    nodes {
      id
    }
  }
}`

const sentinelProductCreateMutation = `
mutation productCreate($input: ProductInput!) {
  productCreate(input: $input) {
    product {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

// newSentinelProduct cria o contêiner das variantes baseadas em produto:
// um produto em rascunho marcado com a tag configurada.
func newSentinelProduct(remote Remote, variant, tag string, locker lock.Locker, log zerolog.Logger) *container {
	return &container{
		variant: variant,
		key:     "product:" + tag,
		locker:  locker,
		log:     log,
		timeout: containerResolveTimeout,
		lookup: func(ctx context.Context) (string, error) {
			var resp struct {
				Products struct {
					Nodes []struct {
						ID string `json:"id"`
					} `json:"nodes"`
				} `json:"products"`
			}
			vars := map[string]any{"query": searchTerm("tag", tag)}
			if err := remote.GraphQL(ctx, "products", sentinelProductQuery, vars, &resp); err != nil {
				return "", err
			}
			if len(resp.Products.Nodes) == 0 {
				return "", nil
			}
			return resp.Products.Nodes[0].ID, nil
		},
		create: func(ctx context.Context) (string, error) {
			var resp struct {
				ProductCreate struct {
					Product *struct {
						ID string `json:"id"`
					} `json:"product"`
					UserErrors []shopify.UserError `json:"userErrors"`
				} `json:"productCreate"`
			}
			vars := map[string]any{"input": map[string]any{
				"title":  "Acervo de imagens",
				"status": "DRAFT",
				"tags":   []string{tag},
			}}
			if err := remote.GraphQL(ctx, "productCreate", sentinelProductCreateMutation, vars, &resp); err != nil {
				return "", err
			}
			if err := shopify.CheckUserErrors("productCreate", resp.ProductCreate.UserErrors); err != nil {
				return "", err
			}
			if resp.ProductCreate.Product == nil || resp.ProductCreate.Product.ID == "" {
				return "", fmt.Errorf("productCreate: produto não retornado")
			}
			return resp.ProductCreate.Product.ID, nil
		},
	}
}

// searchTerm monta um filtro da sintaxe de busca da Shopify com o valor entre aspas.
func searchTerm(field, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return field + `:"` + escaped + `"`
}
