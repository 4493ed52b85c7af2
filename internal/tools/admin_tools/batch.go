package admin_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/workflow"
)

// Batch generation settings.
const (
	DefaultOrganization = "homelander"
	PaymentProcessor    = "ndia-payment-processor"
	processMonthly      = "auto_process_monthly"
	batchSource         = "edge-function"
)

type batchRequest struct {
	Action         string `json:"action"`
	OrganizationID string `json:"organization_id"`
}

// BatchResult is the sda_generate_ndia_batch payload. Success mirrors the
// function's HTTP status.
type BatchResult struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data"`
	Source     string `json:"source"`
	statusCode int
}

// SoftError implements common.SoftFailure.
func (r BatchResult) SoftError() string {
	if r.Success {
		return ""
	}
	return fmt.Sprintf("%s returned status %d", PaymentProcessor, r.statusCode)
}

func handleGenerateBatch(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) any {
	invoker := sc.Workflow()
	if invoker == nil {
		return common.Fail(workflow.ErrNotConfigured)
	}

	org := request.GetString("organization_id", DefaultOrganization)
	resp, err := invoker.Invoke(ctx, PaymentProcessor, batchRequest{
		Action:         processMonthly,
		OrganizationID: org,
	})
	if err != nil {
		return common.Fail(err)
	}

	return BatchResult{
		Success:    resp.OK,
		Data:       resp.Data,
		Source:     batchSource,
		statusCode: resp.StatusCode,
	}
}
