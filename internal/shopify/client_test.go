package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		ShopDomain:  "loja.myshopify.com",
		AccessToken: "shpat_test",
		BaseURL:     srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{ShopDomain: " ", AccessToken: ""})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("esperava ConfigurationError, veio %v", err)
	}
	if len(cfgErr.Missing) != 2 {
		t.Fatalf("esperava duas variáveis ausentes: %v", cfgErr.Missing)
	}
	if !strings.Contains(cfgErr.Error(), "SHOPIFY_ACCESS_TOKEN") {
		t.Fatalf("mensagem sem a variável ausente: %s", cfgErr.Error())
	}
}

func TestGraphQLSendsTokenAndDecodesData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql.json" {
			t.Errorf("path inesperado: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "shpat_test" {
			t.Errorf("token inesperado: %q", got)
		}
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("corpo inválido: %v", err)
		}
		if body.Variables["id"] != "gid://shopify/GenericFile/1" {
			t.Errorf("variáveis inesperadas: %v", body.Variables)
		}
		_, _ = w.Write([]byte(`{"data":{"node":{"id":"gid://shopify/GenericFile/1"}}}`))
	})

	var out struct {
		Node struct {
			ID string `json:"id"`
		} `json:"node"`
	}
	err := client.GraphQL(context.Background(), "node", "query($id: ID!) { node(id: $id) { id } }", map[string]any{"id": "gid://shopify/GenericFile/1"}, &out)
	if err != nil {
		t.Fatalf("GraphQL: %v", err)
	}
	if out.Node.ID != "gid://shopify/GenericFile/1" {
		t.Fatalf("id inesperado: %s", out.Node.ID)
	}
	if client.Shop() != "loja.myshopify.com" {
		t.Fatalf("shop inesperado: %s", client.Shop())
	}
}

func TestGraphQLTopLevelErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Throttled"},{"message":"Field 'x' doesn't exist"}]}`))
	})

	err := client.GraphQL(context.Background(), "files", "{ x }", nil, nil)
	var gqlErr *GraphQLError
	if !errors.As(err, &gqlErr) {
		t.Fatalf("esperava GraphQLError, veio %v", err)
	}
	if len(gqlErr.Messages) != 2 || !strings.Contains(gqlErr.Error(), "Throttled") {
		t.Fatalf("mensagens inesperadas: %v", gqlErr.Messages)
	}
}

func TestGraphQLNullData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})

	err := client.GraphQL(context.Background(), "files", "{ x }", nil, nil)
	var gqlErr *GraphQLError
	if !errors.As(err, &gqlErr) {
		t.Fatalf("esperava GraphQLError, veio %v", err)
	}
}

func TestRESTStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/products/1/images/2.json" {
			t.Errorf("requisição inesperada: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
	})

	err := client.REST(context.Background(), http.MethodDelete, "/products/1/images/2.json", nil, nil)
	if !IsNotFound(err) {
		t.Fatalf("esperava 404, veio %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || !strings.Contains(statusErr.Body, "Not Found") {
		t.Fatalf("corpo não preservado: %v", err)
	}
}

func TestCheckUserErrorsJoinsMessages(t *testing.T) {
	if err := CheckUserErrors("fileCreate", nil); err != nil {
		t.Fatalf("lista vazia não deve gerar erro: %v", err)
	}

	err := CheckUserErrors("fileCreate", []UserError{
		{Field: []string{"files", "0", "originalSource"}, Message: "is invalid"},
		{Message: "File too large"},
	})
	var valErr *RemoteValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("esperava RemoteValidationError, veio %v", err)
	}
	msg := valErr.Error()
	if !strings.Contains(msg, "files.0.originalSource: is invalid") || !strings.Contains(msg, "File too large") {
		t.Fatalf("mensagem não concatenada: %s", msg)
	}
}
