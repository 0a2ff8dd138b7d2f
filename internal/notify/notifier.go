package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier envia alertas para canais externos.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}

type AlertMessage struct {
	Title    string
	Text     string
	Severity string
}

// Nop descarta alertas quando nenhum canal está configurado.
type Nop struct{}

func (Nop) Notify(context.Context, AlertMessage) error { return nil }

type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve Nop quando o webhook não está configurado.
func NewSlackNotifier(webhookURL string) Notifier {
	if webhookURL == "" {
		return Nop{}
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, msg AlertMessage) error {
	payload := map[string]any{
		"text": formatSlackMessage(msg),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("slack notification failed")
	}
	return nil
}

func formatSlackMessage(msg AlertMessage) string {
	emoji := ":information_source:"
	switch msg.Severity {
	case "warning":
		emoji = ":warning:"
	case "critical":
		emoji = ":rotating_light:"
	}
	if msg.Title != "" {
		return emoji + " *" + msg.Title + "*\n" + msg.Text
	}
	return emoji + " " + msg.Text
}

// Alerter transforma falhas de escrita no acervo em alertas, sem bloquear a requisição.
type Alerter struct {
	notifier Notifier
	shop     string
	variant  string
	log      zerolog.Logger
	timeout  time.Duration
}

func NewAlerter(notifier Notifier, shop, variant string, log zerolog.Logger) *Alerter {
	if notifier == nil {
		notifier = Nop{}
	}
	return &Alerter{
		notifier: notifier,
		shop:     shop,
		variant:  variant,
		log:      log.With().Str("component", "alerts").Logger(),
		timeout:  10 * time.Second,
	}
}

// WriteFailed avisa que um upload ou remoção falhou. O envio roda em segundo plano.
func (a *Alerter) WriteFailed(operation, target string, cause error) {
	if a == nil || cause == nil {
		return
	}
	msg := AlertMessage{
		Title:    fmt.Sprintf("Falha em %s no acervo", operation),
		Text:     fmt.Sprintf("loja: %s\nvariante: %s\nalvo: %s\nerro: %v", a.shop, a.variant, target, cause),
		Severity: "warning",
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.notifier.Notify(ctx, msg); err != nil {
			a.log.Warn().Err(err).Str("operation", operation).Msg("falha ao enviar alerta")
		}
	}()
}
