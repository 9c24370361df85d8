// Package imap fetches unseen messages from an IMAP folder so that inventory
// spreadsheets mailed in by the plant are ingested like uploaded files.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"calibboard/internal"
	"calibboard/internal/config"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	folder   string
	max      int
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		folder:   cfg.MailFolder,
		max:      cfg.MailFetchMax,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

// Fetch returns the newest unseen messages, oldest first, each as a raw .eml
// source. Messages are flagged seen once read when markSeen is set.
func (c *Connector) Fetch(ctx context.Context) ([]internal.Source, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := client.Select(c.folder, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", c.folder, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > c.max {
		ids = ids[len(ids)-c.max:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.Source, 0, len(ids))
	seen := new(imap.SeqSet)
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		messageID := ""
		if msg.Envelope != nil {
			messageID = msg.Envelope.MessageId
		}
		out = append(out, internal.Source{Name: SourceName(messageID, msg.Uid), Content: raw})
		seen.AddNum(msg.SeqNum)
	}
	if err := <-fetchDone; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	if c.markSeen && !seen.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(seen, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, fmt.Errorf("mark seen: %w", err)
		}
	}
	return out, nil
}

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._@-]+`)

// SourceName turns a Message-ID into a file-like name ending in .eml so the
// message decoder picks it up. The UID is used when the header is missing.
func SourceName(messageID string, uid uint32) string {
	name := strings.Trim(reUnsafe.ReplaceAllString(strings.Trim(messageID, "<> "), "_"), "_")
	if name == "" {
		name = fmt.Sprintf("imap-%d", uid)
	}
	if len(name) > 120 {
		name = name[:120]
	}
	return name + ".eml"
}
