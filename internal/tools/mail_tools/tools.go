package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/logging"
	"github.com/teemow/bizgateway/internal/mailbox"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// Defaults for the limit arguments.
const (
	DefaultReadLimit = 20
	DefaultSortLimit = 50
)

// RegisterMailTools registers the mailbox tools.
func RegisterMailTools(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
	readEmailsTool := mcp.NewTool("read_emails",
		mcp.WithDescription("Read emails from the business inbox. Shows unread emails by default."),
		mcp.WithString("folder",
			mcp.Description("Mailbox folder to read"),
			mcp.Enum("INBOX", "Sent"),
			mcp.DefaultString("INBOX"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of emails to return"),
			mcp.DefaultNumber(DefaultReadLimit),
		),
		mcp.WithBoolean("unread_only",
			mcp.Description("Only return unread emails"),
			mcp.DefaultBool(true),
		),
	)

	if err := reg.Register(readEmailsTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleReadEmails(ctx, request, sc)
	}); err != nil {
		return err
	}

	sortEmailsTool := mcp.NewTool("sort_emails",
		mcp.WithDescription("Sort and categorize inbox emails by priority: urgent investor, SDA inquiries, property inquiries, leads, etc."),
		mcp.WithNumber("limit",
			mcp.Description("Number of most recent inbox emails to sort"),
			mcp.DefaultNumber(DefaultSortLimit),
		),
	)

	if err := reg.Register(sortEmailsTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleSortEmails(ctx, request, sc)
	}); err != nil {
		return err
	}

	if readOnly {
		return nil
	}

	sendEmailTool := mcp.NewTool("send_email",
		mcp.WithDescription("Send a plain text business email"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body text"),
		),
	)

	return reg.Register(sendEmailTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleSendEmail(ctx, request, sc)
	})
}

func handleReadEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	fetcher := sc.Mailbox()
	if fetcher == nil {
		return nil, mailbox.ErrNotConfigured
	}

	folder := request.GetString("folder", mailbox.InboxFolder)
	limit := common.Limit(request, "limit", DefaultReadLimit)
	unreadOnly := request.GetBool("unread_only", true)

	result, err := fetcher.FetchMessages(ctx, folder, limit, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to read emails: %w", err)
	}
	return result, nil
}

func handleSortEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	fetcher := sc.Mailbox()
	if fetcher == nil {
		return nil, mailbox.ErrNotConfigured
	}

	classification, err := mailbox.Triage(ctx, fetcher, common.Limit(request, "limit", DefaultSortLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to sort emails: %w", err)
	}
	return classification, nil
}

// sendResult is the success payload of send_email.
type sendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	to, err := request.RequireString("to")
	if err != nil {
		return nil, err
	}
	subject, err := request.RequireString("subject")
	if err != nil {
		return nil, err
	}
	body, err := request.RequireString("body")
	if err != nil {
		return nil, err
	}

	mailer := sc.Mailer()
	if mailer == nil {
		return common.Fail(mailbox.ErrNotConfigured), nil
	}

	if err := mailer.SendMail(ctx, to, subject, body); err != nil {
		sc.Logger().Warn("send_email failed",
			logging.Recipient(to),
			logging.Err(err),
		)
		return common.Fail(err), nil
	}

	return sendResult{Success: true, Message: "Email sent to " + to}, nil
}
