package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Variantes de armazenamento suportadas.
const (
	VariantFiles        = "files"
	VariantMetaobject   = "metaobject"
	VariantProductMedia = "product_media"
	VariantProductImage = "product_image"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	LogLevel        zerolog.Level
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RedisURL        string
	SlackWebhookURL string
	Shopify         ShopifyConfig
	Assets          AssetConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ShopifyConfig agrupa credenciais e parâmetros da Admin API.
// Credenciais ausentes não impedem a inicialização: o erro aparece na primeira requisição.
type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	HTTPTimeout time.Duration
	RateLimit   RateLimitConfig
}

// AssetConfig descreve a variante de armazenamento e seus limites.
type AssetConfig struct {
	Variant        string
	MaxUploadBytes int64
	InlineMaxBytes int64
	SentinelTag    string
	MetaobjectType string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "3000")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))))
	if err != nil {
		return nil, errors.New("LOG_LEVEL inválido")
	}
	cfg.LogLevel = level

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))
	cfg.SlackWebhookURL = strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", ""))

	cfg.Shopify.ShopDomain = normalizeShopDomain(getEnv("SHOPIFY_SHOP_DOMAIN", ""))
	cfg.Shopify.AccessToken = strings.TrimSpace(getEnv("SHOPIFY_ACCESS_TOKEN", ""))
	cfg.Shopify.APIVersion = strings.TrimSpace(getEnv("SHOPIFY_API_VERSION", "2024-10"))
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-10"
	}

	timeout, err := parseDurationEnv("SHOPIFY_HTTP_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Shopify.HTTPTimeout = timeout

	rps, err := parseFloatEnv("SHOPIFY_RATE_LIMIT", 2)
	if err != nil {
		return nil, err
	}
	burst, err := parseIntEnv("SHOPIFY_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}
	cfg.Shopify.RateLimit = RateLimitConfig{RequestsPerSecond: rps, Burst: int(burst)}

	cfg.Assets.Variant = strings.ToLower(strings.TrimSpace(getEnv("ASSET_VARIANT", VariantFiles)))
	switch cfg.Assets.Variant {
	case VariantFiles, VariantMetaobject, VariantProductMedia, VariantProductImage:
	default:
		return nil, fmt.Errorf("ASSET_VARIANT %q não suportada", cfg.Assets.Variant)
	}

	maxUpload, err := parseIntEnv("UPLOAD_MAX_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}
	cfg.Assets.MaxUploadBytes = maxUpload

	inlineMax, err := parseIntEnv("INLINE_MAX_BYTES", 50000)
	if err != nil {
		return nil, err
	}
	cfg.Assets.InlineMaxBytes = inlineMax

	cfg.Assets.SentinelTag = strings.TrimSpace(getEnv("SENTINEL_TAG", "acervo-storage"))
	if cfg.Assets.SentinelTag == "" {
		return nil, errors.New("SENTINEL_TAG não pode ser vazio")
	}
	cfg.Assets.MetaobjectType = strings.TrimSpace(getEnv("METAOBJECT_TYPE", "acervo_image"))
	if cfg.Assets.MetaobjectType == "" {
		return nil, errors.New("METAOBJECT_TYPE não pode ser vazio")
	}

	return cfg, nil
}

// normalizeShopDomain remove esquema e barras de domínios colados da URL do admin.
func normalizeShopDomain(raw string) string {
	domain := strings.TrimSpace(raw)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return f, nil
}
