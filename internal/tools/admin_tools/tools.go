package admin_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/datastore"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// Source tags every envelope read from the admin store.
const Source = "sda-admin-db"

// Envelope is the payload of the list tools.
type Envelope struct {
	Success bool            `json:"success"`
	Data    []datastore.Row `json:"data"`
	Count   int             `json:"count"`
	Source  string          `json:"source"`
	Summary any             `json:"summary,omitempty"`
}

type argKind int

const (
	stringArg argKind = iota
	boolArg
)

// filterArg maps an optional tool argument onto an equality filter.
type filterArg struct {
	name        string
	kind        argKind
	description string
}

// listTool describes one read-only tool over a single admin table.
type listTool struct {
	name        string
	description string
	table       string
	embeds      []datastore.Embed
	filters     []filterArg
	limit       bool
	orderBy     string
	summarize   func(rows []datastore.Row) any
}

func statusFilter(what string) filterArg {
	return filterArg{name: "status", kind: stringArg, description: "Filter by " + what + " status"}
}

var listTools = []listTool{
	{
		name:        "sda_get_participants",
		description: "Get SDA participants from the admin system",
		table:       "participants",
		filters:     []filterArg{statusFilter("participant")},
		limit:       true,
	},
	{
		name:        "sda_get_landlords",
		description: "Get landlords from the admin system",
		table:       "landlords",
		filters: []filterArg{
			{name: "ndis_registered", kind: boolArg, description: "Only landlords with (true) or without (false) NDIS registration"},
		},
	},
	{
		name:        "sda_get_investors",
		description: "Get investors from the admin system",
		table:       "investors",
	},
	{
		name:        "sda_get_properties",
		description: "Get properties from the admin system",
		table:       "properties",
		filters: []filterArg{
			statusFilter("property"),
			{name: "visible_on_participant_site", kind: boolArg, description: "Filter by visibility on the participant site"},
		},
		limit: true,
	},
	{
		name:        "sda_get_jobs",
		description: "Get PLCG jobs (investment opportunities)",
		table:       "jobs",
		filters:     []filterArg{statusFilter("job")},
	},
	{
		name:        "sda_get_tenancies",
		description: "Get tenancies with their property, participant and landlord",
		table:       "tenancies",
		embeds: []datastore.Embed{
			{Table: "properties", ForeignKey: "property_id"},
			{Table: "participants", ForeignKey: "participant_id"},
			{Table: "landlords", ForeignKey: "landlord_id"},
		},
		filters:   []filterArg{statusFilter("tenancy")},
		summarize: summarizeTenancies,
	},
	{
		name:        "sda_get_ndia_batches",
		description: "Get NDIA payment batches, newest first",
		table:       "ndia_payment_batches",
		filters:     []filterArg{statusFilter("batch")},
		orderBy:     "batch_date",
		summarize:   summarizeBatches,
	},
	{
		name:        "sda_get_rental_payments",
		description: "Get rental payments, latest due date first",
		table:       "rental_payments",
		embeds: []datastore.Embed{
			{Table: "tenancies", ForeignKey: "tenancy_id"},
			{Table: "participants", ForeignKey: "participant_id"},
			{Table: "landlords", ForeignKey: "landlord_id"},
		},
		filters: []filterArg{
			statusFilter("payment"),
			{name: "tenancy_id", kind: stringArg, description: "Only payments for this tenancy"},
		},
		orderBy:   "due_date",
		summarize: summarizePayments,
	},
	{
		name:        "sda_get_maintenance_requests",
		description: "Get maintenance requests, most recently reported first",
		table:       "maintenance_requests",
		embeds: []datastore.Embed{
			{Table: "properties", ForeignKey: "property_id"},
			{Table: "landlords", ForeignKey: "landlord_id"},
		},
		filters: []filterArg{
			statusFilter("request"),
			{name: "priority", kind: stringArg, description: "Filter by priority, e.g. emergency"},
			{name: "property_id", kind: stringArg, description: "Only requests for this property"},
		},
		orderBy:   "reported_date",
		summarize: summarizeMaintenance,
	},
	{
		name:        "sda_get_landlord_statements",
		description: "Get landlord statements, latest period first",
		table:       "landlord_statements",
		embeds: []datastore.Embed{
			{Table: "landlords", ForeignKey: "landlord_id"},
		},
		filters: []filterArg{
			{name: "landlord_id", kind: stringArg, description: "Only statements for this landlord"},
			{name: "statement_type", kind: stringArg, description: "Filter by statement type"},
		},
		orderBy: "period_end",
	},
}

// RegisterAdminTools registers the SDA admin tools. The batch generation
// trigger is a write tool and is skipped when readOnly is set.
func RegisterAdminTools(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
	for _, lt := range listTools {
		if err := reg.Register(lt.tool(), func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
			return lt.handle(ctx, request, sc), nil
		}); err != nil {
			return fmt.Errorf("failed to register %s: %w", lt.name, err)
		}
	}

	healthTool := mcp.NewTool("sda_health_check",
		mcp.WithDescription("Check that the SDA admin database and its core tables are reachable"),
	)
	if err := reg.Register(healthTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleHealthCheck(ctx, sc), nil
	}); err != nil {
		return err
	}

	if readOnly {
		return nil
	}

	batchTool := mcp.NewTool("sda_generate_ndia_batch",
		mcp.WithDescription("Generate this month's NDIA payment batch through the payment processor function"),
		mcp.WithString("organization_id",
			mcp.Description("Organization to process"),
			mcp.DefaultString(DefaultOrganization),
		),
	)
	return reg.Register(batchTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleGenerateBatch(ctx, request, sc), nil
	})
}

func (lt listTool) tool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(lt.description)}
	for _, f := range lt.filters {
		switch f.kind {
		case boolArg:
			opts = append(opts, mcp.WithBoolean(f.name, mcp.Description(f.description)))
		default:
			opts = append(opts, mcp.WithString(f.name, mcp.Description(f.description)))
		}
	}
	if lt.limit {
		opts = append(opts, mcp.WithNumber("limit", mcp.Description("Maximum number of rows to return")))
	}
	return mcp.NewTool(lt.name, opts...)
}

// query builds the select for request. Empty strings and a missing or
// non-positive limit do not restrict the result.
func (lt listTool) query(request mcp.CallToolRequest) *datastore.Query {
	q := datastore.From(lt.table)
	for _, e := range lt.embeds {
		q.Embed(e.Table, e.ForeignKey)
	}
	for _, f := range lt.filters {
		switch f.kind {
		case boolArg:
			if v, ok := common.OptionalBool(request, f.name); ok {
				q.Eq(f.name, v)
			}
		default:
			if v, ok := common.OptionalString(request, f.name); ok {
				q.Eq(f.name, v)
			}
		}
	}
	if lt.orderBy != "" {
		q.OrderBy(lt.orderBy, true)
	}
	if lt.limit {
		q.WithLimit(common.Limit(request, "limit", 0))
	}
	return q
}

func (lt listTool) handle(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) any {
	store := sc.AdminStore()
	if store == nil {
		return common.Fail(datastore.ErrNotConfigured)
	}

	rows, err := store.Select(ctx, lt.query(request))
	if err != nil {
		return common.Fail(err)
	}
	if rows == nil {
		rows = []datastore.Row{}
	}

	env := Envelope{Success: true, Data: rows, Count: len(rows), Source: Source}
	if lt.summarize != nil {
		env.Summary = lt.summarize(rows)
	}
	return env
}
