package asset

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/gestaozabele/acervo/internal/config"
)

const metaobjectNodeJSON = `{"id":"gid://shopify/Metaobject/55","type":"acervo_image","updatedAt":"2026-03-01T10:00:00Z",
	"filename":{"value":"logo.png"},"contentType":{"value":"image/png"},"size":{"value":"4"},"uploadedAt":{"value":"2026-03-01T09:59:00Z"}`

func TestMetaobjectRejectsOversizedBeforeRemote(t *testing.T) {
	remote := newFakeRemote()
	store := newTestStore(t, remote, config.VariantMetaobject)

	_, err := store.Upload(context.Background(), UploadInput{Filename: "big.png", ContentType: "image/png", Data: make([]byte, 60000)})
	var tooLarge *PayloadTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("esperava PayloadTooLargeError, veio %v", err)
	}
	if tooLarge.Size != 60000 || tooLarge.Limit != 50000 {
		t.Fatalf("erro inesperado: %+v", tooLarge)
	}
	if remote.total() != 0 {
		t.Fatalf("nenhuma chamada remota era esperada: %v", remote.calls)
	}
}

func TestMetaobjectUploadCreatesDefinitionOnce(t *testing.T) {
	remote := newFakeRemote()
	remote.on("metaobjectDefinitionByType", `{"metaobjectDefinitionByType":null}`)
	remote.on("metaobjectDefinitionCreate", `{"metaobjectDefinitionCreate":{"metaobjectDefinition":{"id":"gid://shopify/MetaobjectDefinition/1"},"userErrors":[]}}`)
	remote.on("metaobjectCreate", `{"metaobjectCreate":{"metaobject":`+metaobjectNodeJSON+`},"userErrors":[]}}`)
	store := newTestStore(t, remote, config.VariantMetaobject)

	for i := 0; i < 2; i++ {
		desc, err := store.Upload(context.Background(), UploadInput{Filename: "logo.png", ContentType: "image/png", Data: []byte("abcd")})
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if desc.URL != "/api/images/55/content" || desc.Status != StatusReady {
			t.Fatalf("descritor inesperado: %+v", desc)
		}
	}
	if remote.count("metaobjectDefinitionCreate") != 1 || remote.count("metaobjectDefinitionByType") != 1 {
		t.Fatalf("definição deveria ser resolvida uma vez: %v", remote.calls)
	}

	input := remote.vars["metaobjectCreate"]["metaobject"].(map[string]any)
	if input["type"] != "acervo_image" {
		t.Fatalf("tipo = %v", input["type"])
	}
	if h, _ := input["handle"].(string); !strings.HasPrefix(h, "img-") {
		t.Fatalf("handle = %v", input["handle"])
	}
	fields := input["fields"].([]map[string]string)
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abcd"))
	if fields[4]["key"] != "data" || fields[4]["value"] != want {
		t.Fatalf("campo data = %v", fields[4])
	}
}

func TestMetaobjectContentDecodesDataURI(t *testing.T) {
	remote := newFakeRemote()
	payload := base64.StdEncoding.EncodeToString([]byte("abcd"))
	remote.on("metaobject", `{"metaobject":`+metaobjectNodeJSON+`,"data":{"value":"data:image/png;base64,`+payload+`"}}}`)
	store := newTestStore(t, remote, config.VariantMetaobject)

	reader, ok := store.(ContentReader)
	if !ok {
		t.Fatalf("variante metaobject deveria servir conteúdo")
	}
	content, err := reader.Content(context.Background(), "55")
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if string(content.Data) != "abcd" || content.MimeType != "image/png" || content.DisplayName != "logo.png" {
		t.Fatalf("conteúdo inesperado: %+v", content)
	}
}

func TestMetaobjectGetIgnoresOtherTypes(t *testing.T) {
	remote := newFakeRemote()
	remote.on("metaobject", `{"metaobject":{"id":"gid://shopify/Metaobject/9","type":"outro_tipo"}}`)
	store := newTestStore(t, remote, config.VariantMetaobject)

	desc, err := store.Get(context.Background(), "9")
	if err != nil || desc != nil {
		t.Fatalf("esperava nil,nil; veio %v, %v", desc, err)
	}
}

func TestMetaobjectGetParsesFields(t *testing.T) {
	remote := newFakeRemote()
	remote.on("metaobject", `{"metaobject":`+metaobjectNodeJSON+`}}`)
	store := newTestStore(t, remote, config.VariantMetaobject)

	desc, err := store.Get(context.Background(), "gid://shopify/Metaobject/55")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if desc.SizeBytes == nil || *desc.SizeBytes != 4 || desc.CreatedAt.Minute() != 59 {
		t.Fatalf("campos inesperados: %+v", desc)
	}
}

func TestMetaobjectDeleteRequiresConfirmation(t *testing.T) {
	remote := newFakeRemote()
	remote.on("metaobjectDelete", `{"metaobjectDelete":{"deletedId":null,"userErrors":[]}}`)
	store := newTestStore(t, remote, config.VariantMetaobject)

	if _, err := store.Delete(context.Background(), "55"); err == nil {
		t.Fatalf("remoção sem confirmação deveria falhar")
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, _, err := decodeDataURI("https://cdn/x.png"); err == nil {
		t.Fatalf("URL comum não é data URI")
	}
	if _, _, err := decodeDataURI("data:image/png,abcd"); err == nil {
		t.Fatalf("data URI sem base64 deveria falhar")
	}
	mimeType, data, err := decodeDataURI("data:image/gif;base64,R0lG")
	if err != nil || mimeType != "image/gif" || len(data) != 3 {
		t.Fatalf("decodeDataURI = %q, %v, %v", mimeType, data, err)
	}
}
