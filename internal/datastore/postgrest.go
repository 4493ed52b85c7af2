package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
)

const restPath = "/rest/v1"

// PostgREST queries a PostgREST endpoint, such as the REST API of a
// Supabase project.
type PostgREST struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewPostgREST creates a store for the project at baseURL. key is sent as
// both the apikey header and the bearer token. The client's transport
// carries the requests and its timeout bounds each query.
func NewPostgREST(baseURL, key string, client *http.Client) *PostgREST {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PostgREST{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  client,
	}
}

// Select implements Store.
func (p *PostgREST) Select(ctx context.Context, q *Query) ([]Row, error) {
	if p.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if p.client.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.client.Timeout)
		defer cancel()
	}

	rc := p.restClient(ctx)
	if rc.ClientError != nil {
		return nil, fmt.Errorf("invalid PostgREST URL: %w", rc.ClientError)
	}

	raw, _, err := restQuery(rc, q).Execute()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request to %s failed: %w", q.Table, ctx.Err())
		}
		return nil, fmt.Errorf("request to %s failed: %w", q.Table, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", q.Table, err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// restClient builds a client whose requests are bound to ctx. postgrest-go
// takes no context, so one client is made per query.
func (p *PostgREST) restClient(ctx context.Context) *postgrest.Client {
	headers := map[string]string{}
	if p.key != "" {
		headers["apikey"] = p.key
		headers["Authorization"] = "Bearer " + p.key
	}
	rc := postgrest.NewClient(p.baseURL+restPath, "", headers)
	if rc.ClientError == nil {
		next := p.client.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		rc.Transport.Parent = contextTransport{ctx: ctx, next: next}
	}
	return rc
}

type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

// restQuery maps q onto the postgrest-go builder, for example
// select=*,landlords(*)&status=eq.active&order=due_date.desc.nullslast&limit=10.
// Several filters on one column are combined in an and=(...) tree since
// the builder keeps one filter per column.
func restQuery(rc *postgrest.Client, q *Query) *postgrest.FilterBuilder {
	sel := "*"
	if len(q.Columns) > 0 {
		sel = strings.Join(q.Columns, ",")
	}
	for _, e := range q.Embeds {
		sel += "," + e.Table + "(*)"
	}
	fb := rc.From(q.Table).Select(sel, "", false)

	perColumn := make(map[string]int, len(q.Filters))
	for _, f := range q.Filters {
		perColumn[f.Column]++
	}

	var tree []string
	for _, f := range q.Filters {
		value := formatValue(f.Value)
		if perColumn[f.Column] > 1 {
			tree = append(tree, f.Column+"."+string(f.Op)+"."+quoteTreeValue(value))
			continue
		}
		switch f.Op {
		case OpEq:
			fb.Eq(f.Column, value)
		case OpLte:
			fb.Lte(f.Column, value)
		case OpGte:
			fb.Gte(f.Column, value)
		case OpILike:
			fb.Ilike(f.Column, value)
		}
	}
	if len(tree) > 0 {
		fb.And(strings.Join(tree, ","), "")
	}

	if q.Order != nil {
		fb.Order(q.Order.Column, &postgrest.OrderOpts{Ascending: !q.Order.Descending})
	}
	if q.Limit > 0 {
		fb.Limit(q.Limit, "")
	}
	return fb
}

// quoteTreeValue quotes values that would break a logic tree.
func quoteTreeValue(v string) string {
	if strings.ContainsAny(v, `,()"`) {
		return strconv.Quote(v)
	}
	return v
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return "null"
	default:
		return fmt.Sprint(t)
	}
}
