package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acervo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total de requisições HTTP",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acervo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duração das requisições HTTP em segundos",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acervo",
			Subsystem: "assets",
			Name:      "uploads_total",
			Help:      "Total de uploads por variante e resultado",
		},
		[]string{"variant", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acervo",
			Subsystem: "assets",
			Name:      "upload_bytes_total",
			Help:      "Bytes enviados com sucesso",
		},
		[]string{"variant"},
	)

	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acervo",
			Subsystem: "shopify",
			Name:      "calls_total",
			Help:      "Chamadas à Shopify por operação e resultado",
		},
		[]string{"operation", "status"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acervo",
			Subsystem: "shopify",
			Name:      "call_duration_seconds",
			Help:      "Duração das chamadas à Shopify em segundos",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"operation"},
	)

	ContainerEnsuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acervo",
			Subsystem: "assets",
			Name:      "container_ensures_total",
			Help:      "Resoluções do contêiner sentinela (found, created, error)",
		},
		[]string{"variant", "result"},
	)
)

// RecordRequest registra uma requisição HTTP.
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// Resultados de upload usados como rótulo.
const (
	UploadOK    = "ok"
	UploadError = "error"
)

// RecordUpload registra um upload; bytes só contam em caso de sucesso.
func RecordUpload(variant, status string, bytes int64) {
	UploadsTotal.WithLabelValues(variant, status).Inc()
	if status == UploadOK {
		UploadBytesTotal.WithLabelValues(variant).Add(float64(bytes))
	}
}

// RecordRemoteCall registra uma chamada à Shopify.
func RecordRemoteCall(operation, status string, durationSec float64) {
	RemoteCallsTotal.WithLabelValues(operation, status).Inc()
	RemoteCallDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordContainerEnsure registra o resultado de EnsureContainer.
func RecordContainerEnsure(variant, result string) {
	ContainerEnsuresTotal.WithLabelValues(variant, result).Inc()
}
