// Package mail_tools provides the mailbox tools: reading a folder, triaging
// the inbox into priority categories and sending mail.
//
// send_email is a write tool and is only registered when the server is not
// running read-only.
package mail_tools
