package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/acervo/internal/shopify"
)

const genericFileFields = `
  id
  alt
  createdAt
  fileStatus
  ... on GenericFile {
    url
    mimeType
    originalFileSize
  }`

const fileCreateMutation = `
mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {` + genericFileFields + `
    }
    userErrors {
      field
      message
    }
  }
}`

const filesListQuery = `
query files($first: Int!, $query: String!) {
  files(first: $first, query: $query) {
    edges {
      node {` + genericFileFields + `
      }
    }
  }
}`

const fileNodeQuery = `
query file($id: ID!) {
  node(id: $id) {
    ... on GenericFile {` + genericFileFields + `
    }
  }
}`

const fileDeleteMutation = `
mutation fileDelete($input: [ID!]!) {
  fileDelete(fileIds: $input) {
    deletedFileIds
    userErrors {
      field
      message
    }
  }
}`

type genericFileNode struct {
	ID               string    `json:"id"`
	Alt              string    `json:"alt"`
	CreatedAt        time.Time `json:"createdAt"`
	FileStatus       string    `json:"fileStatus"`
	URL              string    `json:"url"`
	MimeType         string    `json:"mimeType"`
	OriginalFileSize *int64    `json:"originalFileSize"`
}

// fileStore guarda imagens como GenericFile via upload em etapas.
type fileStore struct {
	remote  Remote
	opts    Options
	log     zerolog.Logger
	staging stagedUpload
}

func newFileStore(remote Remote, opts Options, log zerolog.Logger) *fileStore {
	return &fileStore{
		remote:  remote,
		opts:    opts,
		log:     log,
		staging: stagedUpload{remote: remote, resource: shopify.ResourceFile},
	}
}

func (s *fileStore) Variant() string {
	return s.opts.Variant
}

func (s *fileStore) Upload(ctx context.Context, in UploadInput) (*Descriptor, error) {
	if err := in.validate(s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}
	return s.staging.run(ctx, in, s.register)
}

func (s *fileStore) register(ctx context.Context, resourceURL string, in UploadInput) (*Descriptor, error) {
	var resp struct {
		FileCreate struct {
			Files      []genericFileNode   `json:"files"`
			UserErrors []shopify.UserError `json:"userErrors"`
		} `json:"fileCreate"`
	}
	vars := map[string]any{"files": []map[string]any{{
		"alt":            in.Filename,
		"contentType":    "FILE",
		"originalSource": resourceURL,
	}}}
	if err := s.remote.GraphQL(ctx, "fileCreate", fileCreateMutation, vars, &resp); err != nil {
		return nil, err
	}
	if err := shopify.CheckUserErrors("fileCreate", resp.FileCreate.UserErrors); err != nil {
		return nil, err
	}
	if len(resp.FileCreate.Files) == 0 {
		return nil, fmt.Errorf("fileCreate: nenhum arquivo retornado")
	}
	return s.toDescriptor(resp.FileCreate.Files[0])
}

func (s *fileStore) List(ctx context.Context) []Descriptor {
	var resp struct {
		Files *struct {
			Edges []struct {
				Node genericFileNode `json:"node"`
			} `json:"edges"`
		} `json:"files"`
	}
	vars := map[string]any{"first": listPageSize, "query": "media_type:GENERIC_FILE"}
	if err := s.remote.GraphQL(ctx, "files", filesListQuery, vars, &resp); err != nil {
		s.log.Warn().Err(err).Msg("listagem indisponível, devolvendo lista vazia")
		return []Descriptor{}
	}
	if resp.Files == nil {
		return []Descriptor{}
	}

	out := make([]Descriptor, 0, len(resp.Files.Edges))
	for _, edge := range resp.Files.Edges {
		desc, err := s.toDescriptor(edge.Node)
		if err != nil {
			s.log.Debug().Err(err).Str("id", edge.Node.ID).Msg("ignorando nó de outro tipo")
			continue
		}
		out = append(out, *desc)
	}
	return out
}

func (s *fileStore) Get(ctx context.Context, raw string) (*Descriptor, error) {
	id, err := ParseID(KindGenericFile, raw)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Node *genericFileNode `json:"node"`
	}
	if err := s.remote.GraphQL(ctx, "node", fileNodeQuery, map[string]any{"id": id.String()}, &resp); err != nil {
		return nil, err
	}
	if resp.Node == nil || resp.Node.ID == "" {
		return nil, nil
	}
	return s.toDescriptor(*resp.Node)
}

func (s *fileStore) Delete(ctx context.Context, raw string) (ID, error) {
	id, err := ParseID(KindGenericFile, raw)
	if err != nil {
		return ID{}, err
	}

	var resp struct {
		FileDelete struct {
			DeletedFileIDs []string            `json:"deletedFileIds"`
			UserErrors     []shopify.UserError `json:"userErrors"`
		} `json:"fileDelete"`
	}
	vars := map[string]any{"input": []string{id.String()}}
	if err := s.remote.GraphQL(ctx, "fileDelete", fileDeleteMutation, vars, &resp); err != nil {
		return ID{}, err
	}
	if err := shopify.CheckUserErrors("fileDelete", resp.FileDelete.UserErrors); err != nil {
		return ID{}, err
	}
	return confirmDeleted(id, resp.FileDelete.DeletedFileIDs)
}

func (s *fileStore) toDescriptor(node genericFileNode) (*Descriptor, error) {
	id, err := ParseID(KindGenericFile, node.ID)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		ID:          id,
		URL:         node.URL,
		DisplayName: node.Alt,
		MimeType:    node.MimeType,
		SizeBytes:   node.OriginalFileSize,
		CreatedAt:   node.CreatedAt,
		Status:      normalizeStatus(node.FileStatus),
	}, nil
}

// confirmDeleted exige que a Shopify confirme o id removido.
func confirmDeleted(id ID, deleted []string) (ID, error) {
	for _, d := range deleted {
		if d == id.String() {
			return id, nil
		}
	}
	return ID{}, fmt.Errorf("remoção de %s não confirmada pela Shopify", id)
}
