package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/logging"
)

// Handler executes a tool. A returned payload is sent to the caller as
// JSON; a returned error marks the call as failed.
type Handler func(ctx context.Context, request mcp.CallToolRequest) (any, error)

// Middleware decorates the handler of the named tool.
type Middleware func(name string, next Handler) Handler

var (
	// ErrUnknownTool is returned by Lookup for names not in the catalog.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrDuplicateTool is returned when a name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrSealed is returned when registering after Seal.
	ErrSealed = errors.New("registry is sealed")
)

type entry struct {
	tool    mcp.Tool
	schema  *jsonschema.Resolved
	handler Handler
}

// Registry is the tool catalog. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*entry
	sealed     bool
	middleware []Middleware

	total    atomic.Int64
	countsMu sync.Mutex
	counts   map[string]int64

	logger *slog.Logger
}

// New creates an empty registry. Middleware is applied to every handler
// registered afterwards, the first one outermost.
func New(logger *slog.Logger, middleware ...Middleware) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:      make(map[string]*entry),
		counts:     make(map[string]int64),
		middleware: middleware,
		logger:     logger,
	}
}

// Register adds a tool. The input schema is compiled now so that a broken
// schema fails startup rather than the first call.
func (r *Registry) Register(tool mcp.Tool, handler Handler) error {
	if tool.Name == "" {
		return errors.New("tool has no name")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	schema, err := compileSchema(tool)
	if err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}

	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](tool.Name, handler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	r.tools[tool.Name] = &entry{tool: tool, schema: schema, handler: handler}
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(tool mcp.Tool, handler Handler) {
	if err := r.Register(tool, handler); err != nil {
		panic(err)
	}
}

// Seal freezes the catalog.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Tools returns the catalog sorted by name.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mcp.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	tools := r.Tools()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Lookup returns the tool definition for name.
func (r *Registry) Lookup(name string) (mcp.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return mcp.Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.tool, nil
}

// Invoke runs the named tool with args. The call is counted before it is
// dispatched, so unknown and rejected calls show up in Stats. Unknown names
// share the UnknownBucket entry.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	r.count(name, ok)
	logger := logging.WithTool(r.logger, name)

	if !ok {
		logger.Warn("unknown tool requested")
		return errorResult("Unknown tool: " + name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := validateArgs(e.schema, args); err != nil {
		logger.Debug("invalid arguments", logging.Err(err))
		return errorResult(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}

	req := mcp.CallToolRequest{}
	req.Method = string(mcp.MethodToolsCall)
	req.Params.Name = name
	req.Params.Arguments = args

	payload, err := e.handler(ctx, req)
	if err != nil {
		return errorResult(err.Error())
	}
	return payloadResult(payload)
}

// Handle adapts the registry to the mcp-go tool handler signature.
func (r *Registry) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return r.Invoke(ctx, request.Params.Name, request.GetArguments()), nil
}
