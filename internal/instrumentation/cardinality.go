package instrumentation

// Upstream operation names used as metric labels and span names.
const (
	OperationAuth   = "auth"
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationExport = "export"
)

// StatusClassTransportError is the status class recorded when no HTTP
// response was received at all.
const StatusClassTransportError = "error"

// StatusClass collapses an HTTP status code into its class ("2xx", "4xx", ...)
// so upstream metrics stay at a bounded label cardinality.
//
// Example:
//
//	StatusClass(201) // "2xx"
//	StatusClass(404) // "4xx"
//	StatusClass(0)   // "error"
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return StatusClassTransportError
	}
}
