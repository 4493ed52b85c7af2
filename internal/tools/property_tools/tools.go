package property_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/bizgateway/internal/datastore"
	"github.com/teemow/bizgateway/internal/logging"
	"github.com/teemow/bizgateway/internal/mailbox"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/calendar_tools"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// PropertiesTable holds the property listings in the business store.
const PropertiesTable = "living_well_properties"

const (
	searchLimit        = 50
	snapshotEmailLimit = 20
	snapshotHotLimit   = 10
)

// RegisterPropertyTools registers search_properties and business_snapshot.
func RegisterPropertyTools(reg *registry.Registry, sc *server.ServerContext) error {
	searchTool := mcp.NewTool("search_properties",
		mcp.WithDescription("Search SDA properties in the database. Filter by price, suburb, bedrooms, SDA compliance."),
		mcp.WithNumber("maxPrice",
			mcp.Description("Maximum price"),
		),
		mcp.WithNumber("minPrice",
			mcp.Description("Minimum price"),
		),
		mcp.WithString("suburb",
			mcp.Description("Suburb name (partial match)"),
		),
		mcp.WithNumber("bedrooms",
			mcp.Description("Number of bedrooms"),
		),
		mcp.WithBoolean("sdaCompliant",
			mcp.Description("SDA compliant only"),
			mcp.DefaultBool(true),
		),
	)

	if err := reg.Register(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleSearchProperties(ctx, request, sc), nil
	}); err != nil {
		return err
	}

	snapshotTool := mcp.NewTool("business_snapshot",
		mcp.WithDescription("Get the daily business overview: urgent emails, events, hot properties, SDA inquiries"),
	)

	return reg.Register(snapshotTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleBusinessSnapshot(ctx, sc)
	})
}

// searchResult is the search_properties payload.
type searchResult struct {
	Properties []datastore.Row `json:"properties"`
	Count      int             `json:"count"`
	Filters    map[string]any  `json:"filters"`
}

// searchFailure keeps the properties key present on failure.
type searchFailure struct {
	Error      string          `json:"error"`
	Properties []datastore.Row `json:"properties"`
}

// SoftError implements common.SoftFailure.
func (f searchFailure) SoftError() string { return f.Error }

// searchQuery turns the tool arguments into a listing query. Zero numbers
// and an empty suburb do not filter.
func searchQuery(request mcp.CallToolRequest) *datastore.Query {
	q := datastore.From(PropertiesTable)
	if v, ok := common.OptionalNumber(request, "maxPrice"); ok && v != 0 {
		q.Lte("price", v)
	}
	if v, ok := common.OptionalNumber(request, "minPrice"); ok && v != 0 {
		q.Gte("price", v)
	}
	if v, ok := common.OptionalString(request, "suburb"); ok {
		q.ILike("suburb", "%"+v+"%")
	}
	if v, ok := common.OptionalNumber(request, "bedrooms"); ok && v != 0 {
		q.Eq("bedrooms", int(v))
	}
	if v, ok := common.OptionalBool(request, "sdaCompliant"); ok && v {
		q.Eq("sda_compliant", true)
	}
	return q.WithLimit(searchLimit)
}

func handleSearchProperties(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) any {
	store := sc.BusinessStore()
	if store == nil {
		return searchFailure{Error: datastore.ErrNotConfigured.Error(), Properties: []datastore.Row{}}
	}

	rows, err := store.Select(ctx, searchQuery(request))
	if err != nil {
		return searchFailure{Error: err.Error(), Properties: []datastore.Row{}}
	}
	if rows == nil {
		rows = []datastore.Row{}
	}

	filters := request.GetArguments()
	if filters == nil {
		filters = map[string]any{}
	}
	return searchResult{Properties: rows, Count: len(rows), Filters: filters}
}

// Snapshot is the business_snapshot payload.
type Snapshot struct {
	Date              string `json:"date"`
	UrgentEmails      int    `json:"urgent_emails"`
	SDAInquiries      int    `json:"sda_inquiries"`
	PropertyInquiries int    `json:"property_inquiries"`
	TotalUnreadEmails int    `json:"total_unread_emails"`
	TodaysEvents      int    `json:"todays_events"`
	HotProperties     int    `json:"hot_properties"`
	Summary           string `json:"summary"`
}

// handleBusinessSnapshot runs the inbox triage, the calendar read and the
// listing query concurrently. Only the mailbox is required; the other two
// count as zero when they fail.
func handleBusinessSnapshot(ctx context.Context, sc *server.ServerContext) (*Snapshot, error) {
	fetcher := sc.Mailbox()
	if fetcher == nil {
		return nil, mailbox.ErrNotConfigured
	}
	logger := logging.WithOperation(sc.Logger(), "business_snapshot")

	var (
		classification mailbox.Classification
		eventCount     int
		hotCount       int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := mailbox.Triage(gctx, fetcher, snapshotEmailLimit)
		if err != nil {
			return fmt.Errorf("failed to sort emails: %w", err)
		}
		classification = c
		return nil
	})
	g.Go(func() error {
		today := calendar_tools.Today(gctx, sc)
		if today.Error != "" {
			logger.Warn("calendar unavailable", "error", today.Error)
		}
		eventCount = today.Count
		return nil
	})
	g.Go(func() error {
		store := sc.BusinessStore()
		if store == nil {
			return nil
		}
		rows, err := store.Select(gctx, datastore.From(PropertiesTable).
			Eq("status", "available").
			WithLimit(snapshotHotLimit))
		if err != nil {
			logger.Warn("property listings unavailable", logging.Err(err))
			return nil
		}
		hotCount = len(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	urgent := len(classification.Categories[mailbox.CategoryUrgentInvestor])
	return &Snapshot{
		Date:              sc.Now().Format(time.DateOnly),
		UrgentEmails:      urgent,
		SDAInquiries:      len(classification.Categories[mailbox.CategorySDARelated]),
		PropertyInquiries: len(classification.Categories[mailbox.CategoryPropertyInquiry]),
		TotalUnreadEmails: classification.TotalEmails,
		TodaysEvents:      eventCount,
		HotProperties:     hotCount,
		Summary:           fmt.Sprintf("%d urgent items, %d events today, %d active properties", urgent, eventCount, hotCount),
	}, nil
}
