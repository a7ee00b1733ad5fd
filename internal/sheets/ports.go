package sheets

import (
	"context"

	"terptracker/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseWriter appends expense rows to an external sheet and returns
	// a reference to the written row.
	ExpenseWriter interface {
		Append(ctx context.Context, rec core.ExpenseRecord) (rowRef string, err error)
	}
)
