package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldTable      = "table"
	FieldIndex      = "index"
	FieldUserID     = "user_id"
	FieldUserEmail  = "user_email"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldTimestamp  = "expense_timestamp"
	FieldCategory   = "expense_category"
	FieldAmount     = "expense_amount"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentAuth   = "auth"
	ComponentDynamo = "dynamo"
	ComponentAMQP   = "amqp"
	ComponentWorker = "worker"
	ComponentSheets = "sheets"
)

// Operations defines standard operation names
const (
	OpCreateTable = "create_table"
	OpPut         = "put"
	OpBatchPut    = "batch_put"
	OpGet         = "get"
	OpQuery       = "query"
	OpLogin       = "login"
	OpSignUp      = "sign_up"
	OpExport      = "export"
	OpStartup     = "startup"
	OpShutdown    = "shutdown"
)
