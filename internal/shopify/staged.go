package shopify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/gestaozabele/acervo/internal/metrics"
)

// StagedResource identifica o tipo de recurso declarado no stagedUploadsCreate.
type StagedResource string

const (
	ResourceFile  StagedResource = "FILE"
	ResourceImage StagedResource = "IMAGE"
)

// StagedUploadInput descreve o arquivo que será enviado ao destino temporário.
type StagedUploadInput struct {
	Filename string
	MimeType string
	FileSize int64
	Resource StagedResource
}

// StagedParameter é um campo opaco que deve preceder o arquivo no formulário.
type StagedParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedTarget é o destino de uso único emitido pela Shopify.
// ResourceURL é a referência usada no registro final do arquivo.
type StagedTarget struct {
	URL         string            `json:"url"`
	ResourceURL string            `json:"resourceUrl"`
	Parameters  []StagedParameter `json:"parameters"`
}

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters {
        name
        value
      }
    }
    userErrors {
      field
      message
    }
  }
}`

// CreateStagedUpload solicita um destino temporário para um único arquivo.
func (c *Client) CreateStagedUpload(ctx context.Context, input StagedUploadInput) (*StagedTarget, error) {
	variables := map[string]any{
		"input": []map[string]any{{
			"filename":   input.Filename,
			"mimeType":   input.MimeType,
			"resource":   string(input.Resource),
			"fileSize":   strconv.FormatInt(input.FileSize, 10),
			"httpMethod": http.MethodPost,
		}},
	}

	var resp struct {
		StagedUploadsCreate struct {
			StagedTargets []StagedTarget `json:"stagedTargets"`
			UserErrors    []UserError    `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	if err := c.GraphQL(ctx, "stagedUploadsCreate", stagedUploadsCreateMutation, variables, &resp); err != nil {
		return nil, err
	}
	if err := CheckUserErrors("stagedUploadsCreate", resp.StagedUploadsCreate.UserErrors); err != nil {
		return nil, err
	}
	if len(resp.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, errors.New("shopify stagedUploadsCreate: nenhum destino retornado")
	}

	target := resp.StagedUploadsCreate.StagedTargets[0]
	if strings.TrimSpace(target.URL) == "" || strings.TrimSpace(target.ResourceURL) == "" {
		return nil, errors.New("shopify stagedUploadsCreate: destino incompleto")
	}
	return &target, nil
}

// Transfer envia os bytes ao destino temporário por POST multipart:
// os parâmetros vão como campos do formulário, na ordem recebida, antes do arquivo.
func (c *Client) Transfer(ctx context.Context, target *StagedTarget, filename, contentType string, data []byte) error {
	if target == nil {
		return errors.New("shopify: destino de upload ausente")
	}

	body, formType, err := encodeStagedForm(target.Parameters, filename, contentType, data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", formType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordRemoteCall("staged transfer", "error", time.Since(start).Seconds())
		return err
	}
	defer resp.Body.Close()
	metrics.RecordRemoteCall("staged transfer", statusLabel(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransferError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

func encodeStagedForm(params []StagedParameter, filename, contentType string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range params {
		if err := w.WriteField(p.Name, p.Value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(filename)+`"`)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
