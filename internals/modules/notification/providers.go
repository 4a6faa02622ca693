package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"pulsewatch/config"

	"github.com/nicholas-fedor/shoutrrr"
)

// Provider delivers one formatted message to one destination. Config
// is the channel's opaque key-value map; a missing required key is a
// send-time failure.
type Provider interface {
	Send(ctx context.Context, cfg map[string]string, subject, message string) error
}

type Registry map[ProviderKind]Provider

// NewRegistry wires one concrete provider per kind. Process-wide
// credentials (telegram bot token, SMTP account) come from config and
// never change at runtime.
func NewRegistry(httpClient *http.Client, cfg *config.NotifyConfig) Registry {
	return Registry{
		ProviderConsole:  &ConsoleProvider{},
		ProviderWebhook:  &WebhookProvider{client: httpClient, timeout: cfg.SendTimeout},
		ProviderSlack:    &SlackProvider{client: httpClient, timeout: cfg.SendTimeout},
		ProviderTelegram: &TelegramProvider{client: httpClient, timeout: cfg.SendTimeout, botToken: cfg.TelegramBotToken},
		ProviderEmail:    &EmailProvider{smtp: cfg.SMTP, sendFn: shoutrrr.Send},
	}
}

// ConsoleProvider prints to stdout. Local/dev visibility only; it
// never fails.
type ConsoleProvider struct{}

func (p *ConsoleProvider) Send(_ context.Context, cfg map[string]string, subject, message string) error {
	fmt.Fprintf(os.Stdout,
		"\n======== [DEBUG NOTIFICATION] ========\n"+
			"Subject: %s\nMessage: %s\nConfig: %v\n"+
			"======================================\n",
		subject, message, cfg)
	return nil
}

// WebhookProvider POSTs the subject and message as JSON to the
// channel's url.
type WebhookProvider struct {
	client  *http.Client
	timeout time.Duration
}

func (p *WebhookProvider) Send(ctx context.Context, cfg map[string]string, subject, message string) error {
	target := cfg["url"]
	if target == "" {
		return errors.New("webhook channel missing 'url' config")
	}

	return postJSON(ctx, p.client, p.timeout, target, map[string]string{
		"subject": subject,
		"message": message,
	})
}

type SlackProvider struct {
	client  *http.Client
	timeout time.Duration
}

func (p *SlackProvider) Send(ctx context.Context, cfg map[string]string, subject, message string) error {
	webhookURL := cfg["webhook_url"]
	if webhookURL == "" {
		return errors.New("slack channel missing 'webhook_url' config")
	}

	return postJSON(ctx, p.client, p.timeout, webhookURL, map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", subject, message),
	})
}

type TelegramProvider struct {
	client   *http.Client
	timeout  time.Duration
	botToken string
}

func (p *TelegramProvider) Send(ctx context.Context, cfg map[string]string, _, message string) error {
	chatID := cfg["chat_id"]
	if chatID == "" || p.botToken == "" {
		return errors.New("missing telegram credentials")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", p.botToken)
	return postJSON(ctx, p.client, p.timeout, endpoint, map[string]string{
		"chat_id": chatID,
		"text":    message,
	})
}

// EmailProvider sends through the configured SMTP account; the channel
// config supplies only the recipient.
type EmailProvider struct {
	smtp   *config.SMTPConfig
	sendFn func(rawURL string, message string) error
}

func (p *EmailProvider) Send(_ context.Context, cfg map[string]string, subject, message string) error {
	recipient := cfg["email"]
	if recipient == "" {
		return errors.New("email channel missing 'email' config")
	}
	if p.smtp == nil || p.smtp.Host == "" {
		return errors.New("smtp is not configured")
	}

	return p.sendFn(buildSMTPURL(p.smtp, recipient, subject), message)
}

// smtp://[user:pass@]host:port/?from=addr&to=addr&subject=...&useStartTLS=yes
func buildSMTPURL(smtp *config.SMTPConfig, recipient, subject string) string {
	userinfo := ""
	if smtp.Username != "" {
		userinfo = url.PathEscape(smtp.Username)
		if smtp.Password != "" {
			userinfo += ":" + url.PathEscape(smtp.Password)
		}
		userinfo += "@"
	}

	params := url.Values{}
	params.Set("from", smtp.From)
	params.Set("to", recipient)
	params.Set("subject", subject)
	params.Set("useStartTLS", "yes")

	return fmt.Sprintf("smtp://%s%s:%s/?%s", userinfo, smtp.Host, strconv.Itoa(smtp.Port), params.Encode())
}

func postJSON(ctx context.Context, client *http.Client, timeout time.Duration, target string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
