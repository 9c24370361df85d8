// Package gmail lists messages under a Gmail label through the Gmail API and
// hands each raw message to the pipeline as an .eml source.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"calibboard/internal"
	"calibboard/internal/config"
)

type Connector struct {
	service *gmail.Service
	label   string
	max     int

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	return NewConnectorWithOptions(cfg.MailFolder, cfg.MailFetchMax, option.WithTokenSource(tokenSource))
}

// NewConnectorWithOptions builds a connector on an arbitrary Gmail API client,
// e.g. one pointed at another endpoint.
func NewConnectorWithOptions(label string, max int, opts ...option.ClientOption) (*Connector, error) {
	svc, err := gmail.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail client: %w", err)
	}
	if max < 1 {
		max = 1
	}
	return &Connector{service: svc, label: label, max: max, seen: map[string]struct{}{}}, nil
}

// Fetch returns the messages under the label that earlier calls have not
// returned yet, oldest first. The readonly scope cannot flag messages, so
// the connector remembers what it has handed out.
func (c *Connector) Fetch(ctx context.Context) ([]internal.Source, error) {
	resp, err := c.service.Users.Messages.List("me").
		LabelIds(c.label).
		MaxResults(int64(c.max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, ref := range resp.Messages {
		if ref.Id == "" {
			continue
		}
		if _, ok := c.seen[ref.Id]; ok {
			continue
		}
		ids = append(ids, ref.Id)
	}

	out := make([]internal.Source, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		msg, err := c.service.Users.Messages.Get("me", id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", id, err)
		}
		if msg.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, internal.Source{Name: "gmail-" + id + ".eml", Content: raw})
	}

	for _, id := range ids {
		c.seen[id] = struct{}{}
	}
	return out, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
