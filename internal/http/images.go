package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/acervo/internal/asset"
	"github.com/gestaozabele/acervo/internal/metrics"
)

// uploadField é o campo multipart que carrega a imagem.
const uploadField = "image"

var errNoFile = errors.New("nenhum arquivo enviado")

// apiImage mantém os nomes de campo já consumidos pelos clientes da API.
type apiImage struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        *int64    `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Status      string    `json:"status"`
	Shop        string    `json:"shop"`
}

func (h *Handler) toAPIImage(d asset.Descriptor) apiImage {
	return apiImage{
		ID:          d.ID.String(),
		Filename:    d.DisplayName,
		URL:         d.URL,
		ContentType: d.MimeType,
		Size:        d.SizeBytes,
		UploadedAt:  d.CreatedAt,
		Status:      string(d.Status),
		Shop:        h.cfg.Shopify.ShopDomain,
	}
}

// ListImages devolve todas as imagens do acervo.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	descriptors := store.List(r.Context())
	images := make([]apiImage, 0, len(descriptors))
	for _, d := range descriptors {
		images = append(images, h.toAPIImage(d))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(images),
		"images":  images,
		"storage": "shopify",
	})
}

// GetImage redireciona para a URL da imagem.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	desc, err := store.Get(r.Context(), imageIDParam(r))
	if errors.Is(err, asset.ErrInvalidID) {
		WriteError(w, http.StatusNotFound, "imagem não encontrada")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("falha ao consultar imagem")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// ainda em processamento na Shopify: sem URL para onde redirecionar
	if desc == nil || desc.URL == "" {
		WriteError(w, http.StatusNotFound, "imagem não encontrada")
		return
	}

	http.Redirect(w, r, desc.URL, http.StatusFound)
}

// ImageContent serve os bytes das variantes que guardam a imagem inline.
func (h *Handler) ImageContent(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	reader, ok := store.(asset.ContentReader)
	if !ok {
		WriteError(w, http.StatusNotFound, "conteúdo indisponível para esta variante")
		return
	}

	content, err := reader.Content(r.Context(), imageIDParam(r))
	if errors.Is(err, asset.ErrInvalidID) || (err == nil && content == nil) {
		WriteError(w, http.StatusNotFound, "imagem não encontrada")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("falha ao ler conteúdo da imagem")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", content.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

// UploadImage recebe multipart com o campo "image" e devolve o descritor criado.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	in, err := h.readUpload(w, r)
	if err != nil {
		WriteError(w, uploadErrorStatus(err), err.Error())
		return
	}

	desc, err := h.upload(r, store, in)
	if err != nil {
		WriteError(w, statusFor(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"image":   h.toAPIImage(*desc),
	})
}

// DeleteImage remove a imagem e devolve o id confirmado pela Shopify.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id, err := h.delete(r, store, imageIDParam(r))
	if err != nil {
		WriteError(w, statusFor(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"deletedId": id.String(),
	})
}

// upload roda desligado do contexto do cliente: uma conexão abortada não interrompe as etapas remotas.
func (h *Handler) upload(r *http.Request, store asset.Store, in asset.UploadInput) (*asset.Descriptor, error) {
	ctx := context.WithoutCancel(r.Context())

	desc, err := store.Upload(ctx, in)
	if err != nil {
		metrics.RecordUpload(store.Variant(), metrics.UploadError, int64(len(in.Data)))
		h.log.Error().Err(err).Str("filename", in.Filename).Int("bytes", len(in.Data)).Msg("falha no upload")
		h.alerts.WriteFailed("upload", in.Filename, err)
		return nil, err
	}

	metrics.RecordUpload(store.Variant(), metrics.UploadOK, int64(len(in.Data)))
	h.log.Info().Str("id", desc.ID.String()).Str("filename", in.Filename).Str("status", string(desc.Status)).Msg("imagem enviada")
	return desc, nil
}

func (h *Handler) delete(r *http.Request, store asset.Store, raw string) (asset.ID, error) {
	ctx := context.WithoutCancel(r.Context())

	id, err := store.Delete(ctx, raw)
	if err != nil {
		h.log.Error().Err(err).Str("id", raw).Msg("falha ao remover imagem")
		if !errors.Is(err, asset.ErrInvalidID) {
			h.alerts.WriteFailed("remoção", raw, err)
		}
		return asset.ID{}, err
	}

	h.log.Info().Str("id", id.String()).Msg("imagem removida")
	return id, nil
}

// readUpload lê o campo "image" e prefixa o nome com o instante do envio em milissegundos.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (asset.UploadInput, error) {
	limit := h.cfg.Assets.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return asset.UploadInput{}, fmt.Errorf("%w: arquivo excede %d bytes", asset.ErrInvalidInput, limit)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return asset.UploadInput{}, errNoFile
		}
		return asset.UploadInput{}, fmt.Errorf("%w: formulário inválido: %v", asset.ErrInvalidInput, err)
	}

	_, header, err := r.FormFile(uploadField)
	if err != nil {
		return asset.UploadInput{}, errNoFile
	}

	data, contentType, err := readMultipartFile(header, limit)
	if err != nil {
		return asset.UploadInput{}, fmt.Errorf("%w: %v", asset.ErrInvalidInput, err)
	}

	name := filepath.Base(strings.TrimSpace(header.Filename))
	return asset.UploadInput{
		Filename:    fmt.Sprintf("%d-%s", h.now().UnixMilli(), name),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("falha ao abrir arquivo: %w", err)
	}
	defer file.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(file, limit+1)); err != nil {
		return nil, "", fmt.Errorf("falha ao ler arquivo: %w", err)
	}
	if int64(buf.Len()) > limit {
		return nil, "", fmt.Errorf("arquivo excede %d bytes", limit)
	}
	if buf.Len() == 0 {
		return nil, "", errors.New("arquivo vazio")
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(buf.Bytes()).String()
	}
	return buf.Bytes(), contentType, nil
}

func uploadErrorStatus(err error) int {
	if errors.Is(err, errNoFile) {
		return http.StatusBadRequest
	}
	return statusFor(err)
}

// imageIDParam aceita o número puro ou o gid com as barras escapadas (%2F).
func imageIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}
