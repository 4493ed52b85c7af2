package sms_tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/logging"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/sms"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// RegisterSMSTools registers send_sms unless readOnly is set.
func RegisterSMSTools(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	sendSMSTool := mcp.NewTool("send_sms",
		mcp.WithDescription("Send an SMS text message"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient phone number in E.164 format, e.g. +61400000000"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message text"),
		),
	)

	return reg.Register(sendSMSTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleSendSMS(ctx, request, sc)
	})
}

// sendResult is the success payload of send_sms.
type sendResult struct {
	Success bool   `json:"success"`
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func handleSendSMS(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (any, error) {
	to, err := request.RequireString("to")
	if err != nil {
		return nil, err
	}
	message, err := request.RequireString("message")
	if err != nil {
		return nil, err
	}

	sender := sc.SMS()
	if sender == nil {
		return common.Fail(sms.ErrNotConfigured), nil
	}

	res, err := sender.Send(ctx, to, message)
	if err != nil {
		sc.Logger().Warn("send_sms failed",
			slog.String(logging.KeyRecipient, logging.RedactPhone(to)),
			logging.Err(err),
		)
		return common.Fail(err), nil
	}

	return sendResult{
		Success: true,
		SID:     res.SID,
		Status:  res.Status,
		Message: "SMS sent to " + to,
	}, nil
}
