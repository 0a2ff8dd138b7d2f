package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gestaozabele/acervo/internal/asset"
)

var dashboardFuncs = template.FuncMap{
	"kb": func(size *int64) string {
		if size == nil {
			return "N/D"
		}
		return fmt.Sprintf("%.2f KB", float64(*size)/1024)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "N/D"
		}
		return t.Local().Format("02/01/2006")
	},
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(dashboardFuncs).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <title>Acervo de imagens - Shopify</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; }
    h1 { color: #5c6ac4; }
    .badge { background: #00a047; color: white; padding: 4px 8px; border-radius: 4px; font-size: 11px; }
    .upload-form { background: #f4f6f8; padding: 20px; border-radius: 8px; margin-bottom: 30px; }
    .images-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 20px; }
    .image-card { border: 1px solid #ddd; border-radius: 8px; padding: 10px; background: white; }
    .image-card img, .no-preview { width: 100%; height: 150px; object-fit: cover; border-radius: 4px; }
    .no-preview { display: flex; align-items: center; justify-content: center; background: #ddd; color: #999; }
    .image-info { margin-top: 10px; font-size: 12px; color: #666; }
    button { background: #5c6ac4; color: white; border: none; padding: 8px 16px; border-radius: 4px; cursor: pointer; }
    button.danger { background: #d82c0d; }
  </style>
</head>
<body>
  <h1>Acervo de imagens <span class="badge">Shopify · {{.Variant}}</span></h1>

  <div class="upload-form">
    <h2>Enviar imagem</h2>
    <form action="/dashboard/upload" method="POST" enctype="multipart/form-data">
      <input type="file" name="image" accept="image/*" required>
      <button type="submit">Enviar para a Shopify</button>
    </form>
  </div>

  <h2>Imagens enviadas ({{len .Images}})</h2>
  <div class="images-grid">
    {{range .Images}}
    <div class="image-card">
      {{if .URL}}<img src="{{.URL}}" alt="{{.DisplayName}}">{{else}}<div class="no-preview">Sem pré-visualização</div>{{end}}
      <div class="image-info">
        <strong>{{if .DisplayName}}{{.DisplayName}}{{else}}Sem título{{end}}</strong><br>
        Tamanho: {{kb .SizeBytes}}<br>
        Enviada em: {{date .CreatedAt}}<br>
        Status: {{.Status}}
      </div>
      <form action="/dashboard/images/{{.ID.Local}}/delete" method="POST">
        <button type="submit" class="danger">Remover</button>
      </form>
    </div>
    {{end}}
  </div>

  <p><strong>API:</strong> <code>GET /api/images</code> devolve os dados de todas as imagens.</p>
  <p><a href="/api/images" target="_blank">Ver resposta da API</a></p>
</body>
</html>
`))

var errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px;">
  <h1>{{.Title}}</h1>
  <ol>{{range .Chain}}<li>{{.}}</li>{{end}}</ol>
  {{if .Stack}}<pre style="background:#f4f6f8; padding: 12px; overflow-x: auto;">{{.Stack}}</pre>{{end}}
  <p><a href="/dashboard">Voltar ao painel</a></p>
</body>
</html>
`))

type dashboardView struct {
	Variant string
	Images  []asset.Descriptor
}

type errorView struct {
	Title string
	Chain []string
	Stack string
}

// Dashboard renderiza a lista de imagens e o formulário de envio.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Erro ao carregar o painel", err, false)
		return
	}

	view := dashboardView{Variant: store.Variant(), Images: store.List(r.Context())}
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Erro ao carregar o painel", err, false)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// DashboardUpload envia o arquivo do formulário e volta ao painel.
func (h *Handler) DashboardUpload(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Falha no upload", err, true)
		return
	}

	in, err := h.readUpload(w, r)
	if errors.Is(err, errNoFile) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Nenhum arquivo enviado"))
		return
	}
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Falha no upload", err, true)
		return
	}

	if _, err := h.upload(r, store, in); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Falha no upload", err, true)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// DashboardDelete remove a imagem e volta ao painel.
func (h *Handler) DashboardDelete(w http.ResponseWriter, r *http.Request) {
	store, err := h.store()
	if err != nil {
		h.renderError(w, http.StatusInternalServerError, "Falha ao remover", err, true)
		return
	}

	if _, err := h.delete(r, store, imageIDParam(r)); err != nil {
		h.renderError(w, http.StatusInternalServerError, "Falha ao remover", err, true)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handler) renderError(w http.ResponseWriter, status int, title string, err error, withStack bool) {
	view := errorView{Title: title, Chain: errorChain(err)}
	if withStack {
		view.Stack = string(debug.Stack())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if execErr := errorTemplate.Execute(w, view); execErr != nil {
		h.log.Error().Err(execErr).Msg("falha ao renderizar página de erro")
	}
}
