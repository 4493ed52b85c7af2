package mailbox

import (
	"context"
	"errors"
	"time"
)

// Defaults applied to headers missing from a message.
const (
	DefaultFrom    = "Unknown"
	DefaultSubject = "No Subject"

	// ExcerptLength is the maximum number of runes kept from a message body.
	ExcerptLength = 500
)

// ErrNotConfigured is returned when the mail server settings are missing.
var ErrNotConfigured = errors.New("mailbox not configured")

// Message is one parsed mail item. ID is the IMAP sequence number and is
// only unique within a single fetch.
type Message struct {
	ID          uint32    `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Date        time.Time `json:"date"`
	Text        string    `json:"text"`
	Attachments int       `json:"attachments"`
}

// FetchResult is the result of FetchMessages.
type FetchResult struct {
	Emails []Message `json:"emails"`
	Count  int       `json:"count"`
	Folder string    `json:"folder"`
}

// Session is an authenticated connection to a mail server.
type Session interface {
	// Select opens folder read-only.
	Select(ctx context.Context, folder string) error
	// Search returns the sequence numbers of unread messages, or of all
	// messages, in server order.
	Search(ctx context.Context, unreadOnly bool) ([]uint32, error)
	// Fetch streams the raw RFC 5322 body of each message in seqNums to fn
	// without marking it as read. It returns after the server has signalled
	// the end of the fetch.
	Fetch(ctx context.Context, seqNums []uint32, fn func(seqNum uint32, raw []byte)) error
	// Close tears the connection down. It is safe to call more than once.
	Close() error
}

// Dialer opens authenticated sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Fetcher is the read side of the mailbox, satisfied by *Client.
type Fetcher interface {
	FetchMessages(ctx context.Context, folder string, maxCount int, unreadOnly bool) (*FetchResult, error)
}
