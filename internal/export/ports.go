// Package export defines the outbound ports for commission reporting.
package export

import (
	"context"

	"dealtrack/internal/core"
)

// ReportWriter appends a closed deal to the commission report and returns a
// sink-specific row reference.
type ReportWriter interface {
	AppendDeal(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
