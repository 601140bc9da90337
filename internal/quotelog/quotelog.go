// Package quotelog keeps an audit trail of served pricing quotes in Postgres.
// Writes happen off the request path; losing an entry never fails a request.
package quotelog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Entry struct {
	ID           string
	RequestID    string
	Tier         string
	BillingCycle string
	Assets       int64
	TotalMonthly decimal.Decimal
	TotalAnnual  decimal.Decimal
	Cached       bool
	CreatedAt    time.Time
}

type Store interface {
	Log(ctx context.Context, entry *Entry) error
	CountByTier(ctx context.Context, from, to time.Time) (map[string]int64, error)
}
