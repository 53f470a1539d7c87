// Package mailer sends the service's notification emails through the
// MailChannels and Mailjet HTTP APIs.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Message kinds, used as metric labels.
const (
	KindCompletion = "completion"
	KindLogs       = "logs_request"
)

// Address is a named email address.
type Address struct {
	Email string
	Name  string
}

// Message is a plain-text email.
type Message struct {
	Kind    string
	From    Address
	To      []Address
	Subject string
	Text    string
}

// Mailer delivers one message.
//
//go:generate mockgen -source=mailer.go -destination=mock_mailer.go -package=mailer
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendError is a non-2xx answer from a mail provider.
type SendError struct {
	Provider string
	Status   int
	Body     string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed: status %d: %s", e.Provider, e.Status, e.Body)
}

// MailChannels sends through the MailChannels transactional API.
type MailChannels struct {
	URL        string
	HTTPClient *http.Client
}

type mcAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mcPersonalization struct {
	To []mcAddress `json:"to"`
}

type mcContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mcPayload struct {
	Personalizations []mcPersonalization `json:"personalizations"`
	From             mcAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []mcContent         `json:"content"`
}

func (m *MailChannels) Send(ctx context.Context, msg Message) error {
	to := make([]mcAddress, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, mcAddress(a))
	}
	req, err := newJSONRequest(ctx, m.URL, mcPayload{
		Personalizations: []mcPersonalization{{To: to}},
		From:             mcAddress(msg.From),
		Subject:          msg.Subject,
		Content:          []mcContent{{Type: "text/plain", Value: msg.Text}},
	})
	if err != nil {
		return err
	}
	return do(client(m.HTTPClient), req, "mailchannels")
}

// Mailjet sends through the Mailjet v3.1 send API with basic auth.
type Mailjet struct {
	URL        string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
}

type mjAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mjMessage struct {
	From     mjAddress   `json:"From"`
	To       []mjAddress `json:"To"`
	Subject  string      `json:"Subject"`
	TextPart string      `json:"TextPart"`
}

func (m *Mailjet) Send(ctx context.Context, msg Message) error {
	if m.APIKey == "" || m.APISecret == "" {
		return fmt.Errorf("mailjet API key/secret not configured")
	}
	out := mjMessage{From: mjAddress(msg.From), Subject: msg.Subject, TextPart: msg.Text}
	for _, to := range msg.To {
		out.To = append(out.To, mjAddress(to))
	}
	req, err := newJSONRequest(ctx, m.URL, map[string][]mjMessage{"Messages": {out}})
	if err != nil {
		return err
	}
	req.SetBasicAuth(m.APIKey, m.APISecret)
	return do(client(m.HTTPClient), req, "mailjet")
}

func newJSONRequest(ctx context.Context, url string, payload interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode mail payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(c *http.Client, req *http.Request, provider string) error {
	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &SendError{Provider: provider, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}

func client(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
