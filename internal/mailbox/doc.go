// Package mailbox reads messages from an IMAP mailbox, sorts them into
// priority categories and sends outbound mail over SMTP.
//
// A fetch selects the folder read-only, searches for unread or all
// messages, keeps the newest window of sequence numbers and fetches full
// bodies with BODY.PEEK[] so no \Seen flag is set. Bodies are parsed
// concurrently; the fetch returns once the server has finished streaming
// and every parse has completed.
package mailbox
