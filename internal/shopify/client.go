package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gestaozabele/acervo/internal/metrics"
)

const defaultAPIVersion = "2024-10"

// Client encapsula chamadas à Admin API da Shopify (GraphQL e REST).
type Client struct {
	httpClient *http.Client
	shop       string
	token      string
	baseURL    string
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// Config descreve credenciais e parâmetros de transporte do cliente.
type Config struct {
	ShopDomain        string
	AccessToken       string
	APIVersion        string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            zerolog.Logger
}

// New cria um cliente autenticado por access token.
// BaseURL, quando informado, substitui https://{shop}/admin/api/{versão}.
func New(cfg Config) (*Client, error) {
	shop := strings.TrimSpace(cfg.ShopDomain)
	token := strings.TrimSpace(cfg.AccessToken)

	var missing []string
	if shop == "" {
		missing = append(missing, "SHOPIFY_SHOP_DOMAIN")
	}
	if token == "" {
		missing = append(missing, "SHOPIFY_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", shop, version)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: httpClient,
		shop:       shop,
		token:      token,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, burst),
		log:        cfg.Logger.With().Str("component", "shopify").Logger(),
	}, nil
}

// Shop devolve o domínio da loja.
func (c *Client) Shop() string {
	return c.shop
}

// GraphQL executa query ou mutation e decodifica "data" em out.
func (c *Client) GraphQL(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	body := map[string]any{"query": query}
	if len(variables) > 0 {
		body["variables"] = variables
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/graphql.json", body)
	if err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.do(req, operation, &envelope); err != nil {
		return err
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return &GraphQLError{Messages: messages}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return &GraphQLError{}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("shopify %s: decodificar resposta: %w", operation, err)
	}
	return nil
}

// REST executa chamada à API REST; path é relativo à versão (ex.: "/products/1/images.json").
func (c *Client) REST(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return err
	}
	operation := "rest " + strings.ToLower(method)
	return c.do(req, operation, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, operation string, v any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordRemoteCall(operation, "error", time.Since(start).Seconds())
		return err
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	metrics.RecordRemoteCall(operation, statusLabel(resp.StatusCode), elapsed.Seconds())
	c.log.Debug().Str("operation", operation).Int("status", resp.StatusCode).Dur("duration", elapsed).Msg("shopify_call")

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("shopify %s: decodificar resposta: %w", operation, err)
	}
	return nil
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
