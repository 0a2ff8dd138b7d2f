package asset

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/shopify"
	"github.com/gestaozabele/acervo/internal/util"
)

// ContentPath é a rota local que serve os bytes de uma imagem inline.
func ContentPath(id ID) string {
	return "/api/images/" + id.Local() + "/content"
}

const metaobjectFields = `
  id
  type
  updatedAt
  filename: field(key: "filename") { value }
  contentType: field(key: "content_type") { value }
  size: field(key: "size") { value }
  uploadedAt: field(key: "uploaded_at") { value }`

const metaobjectCreateMutation = `
mutation metaobjectCreate($metaobject: MetaobjectCreateInput!) {
  metaobjectCreate(metaobject: $metaobject) {
    metaobject {` + metaobjectFields + `
    }
    userErrors {
      field
      message
    }
  }
}`

const metaobjectsListQuery = `
query metaobjects($type: String!, $first: Int!) {
  metaobjects(type: $type, first: $first) {
    nodes {` + metaobjectFields + `
    }
  }
}`

const metaobjectQuery = `
query metaobject($id: ID!) {
  metaobject(id: $id) {` + metaobjectFields + `
  }
}`

const metaobjectContentQuery = `
query metaobjectContent($id: ID!) {
  metaobject(id: $id) {` + metaobjectFields + `
    data: field(key: "data") { value }
  }
}`

const metaobjectDeleteMutation = `
mutation metaobjectDelete($id: ID!) {
  metaobjectDelete(id: $id) {
    deletedId
    userErrors {
      field
      message
    }
  }
}`

const metaobjectDefinitionQuery = `
query metaobjectDefinition($type: String!) {
  metaobjectDefinitionByType(type: $type) {
    id
  }
}`

const metaobjectDefinitionCreateMutation = `
mutation metaobjectDefinitionCreate($definition: MetaobjectDefinitionCreateInput!) {
  metaobjectDefinitionCreate(definition: $definition) {
    metaobjectDefinition {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

type metaobjectValue struct {
	Value string `json:"value"`
}

type metaobjectNode struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Filename    *metaobjectValue `json:"filename"`
	ContentType *metaobjectValue `json:"contentType"`
	Size        *metaobjectValue `json:"size"`
	UploadedAt  *metaobjectValue `json:"uploadedAt"`
	Data        *metaobjectValue `json:"data"`
}

func (v *metaobjectValue) String() string {
	if v == nil {
		return ""
	}
	return v.Value
}

// metaobjectStore guarda a imagem como data URI base64 dentro de um metaobject.
// O contêiner aqui é a definição do tipo de metaobject.
type metaobjectStore struct {
	remote     Remote
	opts       Options
	log        zerolog.Logger
	definition *container
}

func newMetaobjectStore(remote Remote, opts Options, log zerolog.Logger) *metaobjectStore {
	s := &metaobjectStore{remote: remote, opts: opts, log: log}
	s.definition = &container{
		variant: opts.Variant,
		key:     "metaobject-definition:" + opts.MetaobjectType,
		locker:  opts.Locker,
		log:     log,
		timeout: containerResolveTimeout,
		lookup:  s.lookupDefinition,
		create:  s.createDefinition,
	}
	return s
}

func (s *metaobjectStore) Variant() string {
	return s.opts.Variant
}

// EnsureContainer garante que a definição do metaobject exista.
func (s *metaobjectStore) EnsureContainer(ctx context.Context) error {
	_, err := s.definition.get(ctx)
	return err
}

func (s *metaobjectStore) Upload(ctx context.Context, in UploadInput) (*Descriptor, error) {
	if size := int64(len(in.Data)); size > s.opts.InlineMaxBytes {
		return nil, &PayloadTooLargeError{Size: size, Limit: s.opts.InlineMaxBytes}
	}
	if err := in.validate(s.opts.InlineMaxBytes); err != nil {
		return nil, err
	}
	if err := s.EnsureContainer(ctx); err != nil {
		return nil, err
	}

	dataURI := "data:" + in.ContentType + ";base64," + base64.StdEncoding.EncodeToString(in.Data)
	vars := map[string]any{"metaobject": map[string]any{
		"type":   s.opts.MetaobjectType,
		"handle": util.NewHandle("img"),
		"fields": []map[string]string{
			{"key": "filename", "value": in.Filename},
			{"key": "content_type", "value": in.ContentType},
			{"key": "size", "value": strconv.Itoa(len(in.Data))},
			{"key": "uploaded_at", "value": s.opts.Now().UTC().Format(time.RFC3339)},
			{"key": "data", "value": dataURI},
		},
	}}

	var resp struct {
		MetaobjectCreate struct {
			Metaobject *metaobjectNode     `json:"metaobject"`
			UserErrors []shopify.UserError `json:"userErrors"`
		} `json:"metaobjectCreate"`
	}
	if err := s.remote.GraphQL(ctx, "metaobjectCreate", metaobjectCreateMutation, vars, &resp); err != nil {
		return nil, fmt.Errorf("registrar metaobject: %w", err)
	}
	if err := shopify.CheckUserErrors("metaobjectCreate", resp.MetaobjectCreate.UserErrors); err != nil {
		return nil, err
	}
	if resp.MetaobjectCreate.Metaobject == nil {
		return nil, fmt.Errorf("metaobjectCreate: metaobject não retornado")
	}

	desc, err := s.toDescriptor(*resp.MetaobjectCreate.Metaobject)
	if err != nil {
		return nil, err
	}
	desc.complete(in)
	return desc, nil
}

func (s *metaobjectStore) List(ctx context.Context) []Descriptor {
	var resp struct {
		Metaobjects *struct {
			Nodes []metaobjectNode `json:"nodes"`
		} `json:"metaobjects"`
	}
	vars := map[string]any{"type": s.opts.MetaobjectType, "first": listPageSize}
	if err := s.remote.GraphQL(ctx, "metaobjects", metaobjectsListQuery, vars, &resp); err != nil {
		s.log.Warn().Err(err).Msg("listagem indisponível, devolvendo lista vazia")
		return []Descriptor{}
	}
	if resp.Metaobjects == nil {
		return []Descriptor{}
	}

	out := make([]Descriptor, 0, len(resp.Metaobjects.Nodes))
	for _, node := range resp.Metaobjects.Nodes {
		desc, err := s.toDescriptor(node)
		if err != nil {
			s.log.Debug().Err(err).Str("id", node.ID).Msg("ignorando metaobject")
			continue
		}
		out = append(out, *desc)
	}
	return out
}

func (s *metaobjectStore) Get(ctx context.Context, raw string) (*Descriptor, error) {
	node, err := s.fetch(ctx, raw, metaobjectQuery)
	if err != nil || node == nil {
		return nil, err
	}
	return s.toDescriptor(*node)
}

// Content decodifica o data URI guardado no metaobject.
func (s *metaobjectStore) Content(ctx context.Context, raw string) (*Content, error) {
	node, err := s.fetch(ctx, raw, metaobjectContentQuery)
	if err != nil || node == nil {
		return nil, err
	}

	mimeType, data, err := decodeDataURI(node.Data.String())
	if err != nil {
		return nil, fmt.Errorf("metaobject %s: %w", node.ID, err)
	}
	if ct := node.ContentType.String(); ct != "" {
		mimeType = ct
	}
	return &Content{Data: data, MimeType: mimeType, DisplayName: node.Filename.String()}, nil
}

func (s *metaobjectStore) fetch(ctx context.Context, raw, query string) (*metaobjectNode, error) {
	id, err := ParseID(KindMetaobject, raw)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Metaobject *metaobjectNode `json:"metaobject"`
	}
	if err := s.remote.GraphQL(ctx, "metaobject", query, map[string]any{"id": id.String()}, &resp); err != nil {
		return nil, err
	}
	// metaobjects de outros tipos na mesma loja não pertencem ao acervo
	if resp.Metaobject == nil || resp.Metaobject.Type != s.opts.MetaobjectType {
		return nil, nil
	}
	return resp.Metaobject, nil
}

func (s *metaobjectStore) Delete(ctx context.Context, raw string) (ID, error) {
	id, err := ParseID(KindMetaobject, raw)
	if err != nil {
		return ID{}, err
	}

	var resp struct {
		MetaobjectDelete struct {
			DeletedID  *string             `json:"deletedId"`
			UserErrors []shopify.UserError `json:"userErrors"`
		} `json:"metaobjectDelete"`
	}
	if err := s.remote.GraphQL(ctx, "metaobjectDelete", metaobjectDeleteMutation, map[string]any{"id": id.String()}, &resp); err != nil {
		return ID{}, err
	}
	if err := shopify.CheckUserErrors("metaobjectDelete", resp.MetaobjectDelete.UserErrors); err != nil {
		return ID{}, err
	}
	var deleted []string
	if resp.MetaobjectDelete.DeletedID != nil {
		deleted = append(deleted, *resp.MetaobjectDelete.DeletedID)
	}
	return confirmDeleted(id, deleted)
}

func (s *metaobjectStore) toDescriptor(node metaobjectNode) (*Descriptor, error) {
	id, err := ParseID(KindMetaobject, node.ID)
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{
		ID:          id,
		URL:         ContentPath(id),
		DisplayName: node.Filename.String(),
		MimeType:    node.ContentType.String(),
		CreatedAt:   node.UpdatedAt,
		Status:      StatusReady,
	}
	if size, err := strconv.ParseInt(node.Size.String(), 10, 64); err == nil {
		desc.SizeBytes = &size
	}
	if uploaded, err := time.Parse(time.RFC3339, node.UploadedAt.String()); err == nil {
		desc.CreatedAt = uploaded
	}
	return desc, nil
}

func (s *metaobjectStore) lookupDefinition(ctx context.Context) (string, error) {
	var resp struct {
		Definition *struct {
			ID string `json:"id"`
		} `json:"metaobjectDefinitionByType"`
	}
	if err := s.remote.GraphQL(ctx, "metaobjectDefinitionByType", metaobjectDefinitionQuery, map[string]any{"type": s.opts.MetaobjectType}, &resp); err != nil {
		return "", err
	}
	if resp.Definition == nil {
		return "", nil
	}
	return resp.Definition.ID, nil
}

func (s *metaobjectStore) createDefinition(ctx context.Context) (string, error) {
	vars := map[string]any{"definition": map[string]any{
		"name": "Acervo de imagens",
		"type": s.opts.MetaobjectType,
		"fieldDefinitions": []map[string]string{
			{"key": "filename", "name": "Arquivo", "type": "single_line_text_field"},
			{"key": "content_type", "name": "Content type", "type": "single_line_text_field"},
			{"key": "size", "name": "Tamanho", "type": "number_integer"},
			{"key": "uploaded_at", "name": "Enviado em", "type": "date_time"},
			{"key": "data", "name": "Dados", "type": "multi_line_text_field"},
		},
	}}

	var resp struct {
		Create struct {
			Definition *struct {
				ID string `json:"id"`
			} `json:"metaobjectDefinition"`
			UserErrors []shopify.UserError `json:"userErrors"`
		} `json:"metaobjectDefinitionCreate"`
	}
	if err := s.remote.GraphQL(ctx, "metaobjectDefinitionCreate", metaobjectDefinitionCreateMutation, vars, &resp); err != nil {
		return "", err
	}
	if err := shopify.CheckUserErrors("metaobjectDefinitionCreate", resp.Create.UserErrors); err != nil {
		return "", err
	}
	if resp.Create.Definition == nil || resp.Create.Definition.ID == "" {
		return "", fmt.Errorf("metaobjectDefinitionCreate: definição não retornada")
	}
	return resp.Create.Definition.ID, nil
}

func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("data URI inválido")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI sem payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URI não está em base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data URI: %w", err)
	}
	return mimeType, data, nil
}
