package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/bizgateway/internal/config"
)

// IMAPDialer dials an IMAP server and logs in.
type IMAPDialer struct {
	cfg       config.MailConfig
	tlsConfig *tls.Config
}

// NewIMAPDialer creates a Dialer for the configured server.
func NewIMAPDialer(cfg config.MailConfig) *IMAPDialer {
	return &IMAPDialer{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
	}
}

// Configured reports whether host and credentials are set.
func (d *IMAPDialer) Configured() bool {
	return d.cfg.Host != "" && d.cfg.User != "" && d.cfg.Password != ""
}

// Dial implements Dialer.
func (d *IMAPDialer) Dial(ctx context.Context) (Session, error) {
	if !d.Configured() {
		return nil, ErrNotConfigured
	}

	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	opts := &imapclient.Options{TLSConfig: d.tlsConfig}

	var c *imapclient.Client
	switch d.cfg.TLS {
	case config.TLSStartTLS:
		var err error
		c, err = imapclient.DialStartTLS(addr, opts)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
	case config.TLSNone:
		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		c = imapclient.New(conn, opts)
	default:
		conn, err := (&tls.Dialer{Config: d.tlsConfig}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		c = imapclient.New(conn, opts)
	}

	sess := &imapSession{client: c}
	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer stop()

	if err := c.Login(d.cfg.User, d.cfg.Password).Wait(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return sess, nil
}

type imapSession struct {
	client    *imapclient.Client
	closeOnce sync.Once
	closeErr  error
}

func (s *imapSession) Select(_ context.Context, folder string) error {
	_, err := s.client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	return err
}

func (s *imapSession) Search(_ context.Context, unreadOnly bool) ([]uint32, error) {
	criteria := &imap.SearchCriteria{}
	if unreadOnly {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}
	data, err := s.client.Search(criteria, nil).Wait()
	if err != nil {
		return nil, err
	}
	return data.AllSeqNums(), nil
}

func (s *imapSession) Fetch(_ context.Context, seqNums []uint32, fn func(uint32, []byte)) error {
	var set imap.SeqSet
	set.AddNum(seqNums...)

	cmd := s.client.Fetch(set, &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{{Peek: true}},
	})
	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}
		for {
			item := msg.Next()
			if item == nil {
				break
			}
			body, ok := item.(imapclient.FetchItemDataBodySection)
			if !ok || body.Literal == nil {
				continue
			}
			// The literal must be consumed before the next item is read.
			raw, err := io.ReadAll(body.Literal)
			if err != nil {
				continue
			}
			fn(msg.SeqNum, raw)
		}
	}
	return cmd.Close()
}

func (s *imapSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
