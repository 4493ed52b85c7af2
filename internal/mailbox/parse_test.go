package mailbox

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fetchedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestParseMessage_Plain(t *testing.T) {
	raw := rawMessage("Viewing request", "Tue, 02 Jan 2024 09:30:00 +1000", "Can I book a viewing?")

	msg, err := ParseMessage(7, raw, fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), msg.ID)
	assert.Equal(t, "Alice <alice@example.com>", msg.From)
	assert.Equal(t, "office@example.com", msg.To)
	assert.Equal(t, "Viewing request", msg.Subject)
	assert.Equal(t, "Can I book a viewing?", msg.Text)
	assert.Equal(t, 0, msg.Attachments)
	assert.True(t, msg.Date.Equal(time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)))
}

func TestParseMessage_Defaults(t *testing.T) {
	raw := []byte("Content-Type: text/plain\r\n\r\nhello\r\n")

	msg, err := ParseMessage(1, raw, fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, DefaultFrom, msg.From)
	assert.Equal(t, "", msg.To)
	assert.Equal(t, DefaultSubject, msg.Subject)
	assert.Equal(t, fetchedAt, msg.Date)
	assert.Equal(t, "hello", msg.Text)
}

func TestParseMessage_EncodedSubject(t *testing.T) {
	raw := []byte("From: =?utf-8?q?J=C3=BCrgen?= <j@example.com>\r\n" +
		"Subject: =?utf-8?b?w5xiZXJzaWNodA==?=\r\n" +
		"\r\nbody\r\n")

	msg, err := ParseMessage(1, raw, fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, "Jürgen <j@example.com>", msg.From)
	assert.Equal(t, "Übersicht", msg.Subject)
}

func TestParseMessage_MultipartWithAttachment(t *testing.T) {
	raw := strings.Join([]string{
		"From: bob@example.com",
		"Subject: Lease documents",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="b1"`,
		"",
		"--b1",
		`Content-Type: multipart/alternative; boundary="b2"`,
		"",
		"--b2",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Please find the lease attached.",
		"--b2",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Please find the <b>lease</b> attached.</p>",
		"--b2--",
		"--b1",
		"Content-Type: application/pdf",
		`Content-Disposition: attachment; filename="lease.pdf"`,
		"",
		"JVBERi0=",
		"--b1",
		"Content-Type: image/png",
		`Content-Disposition: attachment; filename="floorplan.png"`,
		"",
		"iVBORw0=",
		"--b1--",
		"",
	}, "\r\n")

	msg, err := ParseMessage(3, []byte(raw), fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, "Please find the lease attached.", msg.Text)
	assert.Equal(t, 2, msg.Attachments)
}

func TestParseMessage_HTMLOnly(t *testing.T) {
	raw := []byte("Subject: Newsletter\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n<h1>Rental update</h1><p>New <strong>tenant</strong> moved in.</p>\r\n")

	msg, err := ParseMessage(1, raw, fetchedAt)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Rental update")
	assert.Contains(t, msg.Text, "**tenant**")
	assert.NotContains(t, msg.Text, "<p>")
}

func TestParseMessage_TruncatesToRunes(t *testing.T) {
	body := strings.Repeat("ä", 800)
	raw := rawMessage("long", "Mon, 01 Jan 2024 10:00:00 +0000", body)

	msg, err := ParseMessage(1, raw, fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, ExcerptLength, utf8.RuneCountInString(msg.Text))
}

func TestParseMessage_Malformed(t *testing.T) {
	_, err := ParseMessage(1, []byte("this line is not a header\r\n\r\nbody"), fetchedAt)
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("", 2))
}
