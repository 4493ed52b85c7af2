package instrumentation

// Backend names used as the "backend" label on backend operation metrics.
// Label values are restricted to these constants and the Operation* values
// below; caller-controlled strings (folders, table names, recipients) are
// never used as labels.
const (
	BackendIMAP      = "imap"
	BackendSMTP      = "smtp"
	BackendICS       = "ics"
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
	BackendWorkflow  = "workflow"
	BackendSMS       = "sms"
)

// Operation types for backend metrics.
const (
	OperationFetch  = "fetch"
	OperationSearch = "search"
	OperationSelect = "select"
	OperationSend   = "send"
	OperationInvoke = "invoke"
)

// Transport labels for session metrics.
const (
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)
