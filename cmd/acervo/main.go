package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/acervo/internal/asset"
	"github.com/gestaozabele/acervo/internal/bootstrap"
	"github.com/gestaozabele/acervo/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	rt, err := bootstrap.Build(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao montar dependências")
	}
	defer rt.Close()
	if rt.StoreErr != nil {
		log.Fatal().Err(rt.StoreErr).Msg("credenciais da Shopify ausentes")
	}

	ctx := context.Background()
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "list":
		err = runList(ctx, rt.Store)
	case "get":
		err = runGet(ctx, rt.Store, args)
	case "upload":
		err = runUpload(ctx, rt.Store, args)
	case "delete":
		err = runDelete(ctx, rt.Store, args)
	case "ensure":
		err = rt.EnsureContainer(ctx, time.Minute)
		if err == nil {
			fmt.Printf("contêiner da variante %s pronto\n", rt.Store.Variant())
		}
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		rt.Close()
		log.Fatal().Err(err).Str("command", cmd).Msg("comando falhou")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "acervo CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  acervo list")
	fmt.Fprintln(os.Stderr, "  acervo get --id 123")
	fmt.Fprintln(os.Stderr, "  acervo upload --file foto.png [--name foto.png] [--type image/png]")
	fmt.Fprintln(os.Stderr, "  acervo delete --id gid://shopify/GenericFile/123")
	fmt.Fprintln(os.Stderr, "  acervo ensure")
}

func runList(ctx context.Context, store asset.Store) error {
	images := store.List(ctx)
	if len(images) == 0 {
		fmt.Println("nenhuma imagem no acervo")
		return nil
	}
	return printJSON(images)
}

func runGet(ctx context.Context, store asset.Store, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "id numérico ou gid da imagem")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("id é obrigatório")
	}

	desc, err := store.Get(ctx, *id)
	if err != nil {
		return err
	}
	if desc == nil {
		return fmt.Errorf("imagem %s não encontrada", *id)
	}
	return printJSON(desc)
}

func runUpload(ctx context.Context, store asset.Store, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		file        = fs.String("file", "", "caminho do arquivo")
		name        = fs.String("name", "", "nome exibido (padrão: nome do arquivo)")
		contentType = fs.String("type", "", "content type (padrão: detectado pelo conteúdo)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("file é obrigatório")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("ler arquivo: %w", err)
	}
	if *name == "" {
		*name = filepath.Base(*file)
	}
	if *contentType == "" {
		*contentType = mimetype.Detect(data).String()
	}

	desc, err := store.Upload(ctx, asset.UploadInput{Filename: *name, ContentType: *contentType, Data: data})
	if err != nil {
		return err
	}
	return printJSON(desc)
}

func runDelete(ctx context.Context, store asset.Store, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "id numérico ou gid da imagem")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("id é obrigatório")
	}

	deleted, err := store.Delete(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("removida: %s\n", deleted)
	return nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
