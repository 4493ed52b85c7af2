package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	// Register charset decoders (windows-1252, iso-8859-*, etc.)
	_ "github.com/emersion/go-message/charset"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: message.CharsetReader}

// ParseMessage parses a raw RFC 5322 message into a Message. Missing
// headers are replaced by defaults; a missing or invalid Date becomes
// fetchedAt.
func ParseMessage(seqNum uint32, raw []byte, fetchedAt time.Time) (Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return Message{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	msg := Message{
		ID:      seqNum,
		From:    formatAddresses(&mr.Header, "From"),
		To:      formatAddresses(&mr.Header, "To"),
		Subject: decodeHeader(mr.Header.Get("Subject")),
		Date:    fetchedAt,
	}
	if msg.From == "" {
		msg.From = DefaultFrom
	}
	if msg.Subject == "" {
		msg.Subject = DefaultSubject
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		msg.Date = date
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// Keep whatever was read before the broken part.
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			switch {
			case ct == "text/html" && html == "":
				b, readErr := io.ReadAll(p.Body)
				if readErr == nil {
					html = string(b)
				}
			case (ct == "text/plain" || ct == "") && plain == "":
				b, readErr := io.ReadAll(p.Body)
				if readErr == nil {
					plain = string(b)
				}
			}
		case *mail.AttachmentHeader:
			msg.Attachments++
		}
	}

	body := strings.TrimSpace(plain)
	if body == "" && html != "" {
		md, err := htmltomarkdown.ConvertString(html)
		if err == nil {
			body = strings.TrimSpace(md)
		}
	}
	msg.Text = Truncate(body, ExcerptLength)

	return msg, nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func formatAddresses(h *mail.Header, key string) string {
	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return decodeHeader(h.Get(key))
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		if a.Name != "" {
			parts[i] = fmt.Sprintf("%s <%s>", a.Name, a.Address)
		} else {
			parts[i] = a.Address
		}
	}
	return strings.Join(parts, ", ")
}

func decodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(decoded)
}
