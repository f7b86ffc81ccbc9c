package storage

import (
	"context"
	"time"

	"github.com/thirukguru/waf-perimeter/model"
)

// Service persists scan history and answers history queries.
type Service interface {
	SaveScan(ctx context.Context, input SaveScanInput) (int64, error)
	GetRecentScans(limit int) ([]ScanSummary, error)
	GetScanAccounts(scanID int64) ([]AccountSummary, error)
	Vacuum(ctx context.Context) error
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Close() error
}

// SaveScanInput is the payload saved for a completed scan.
type SaveScanInput struct {
	Report     *model.ScanReport
	ReportPath string
	FlagsJSON  string
	Duration   time.Duration
}

// ScanSummary is one row of scan history.
type ScanSummary struct {
	ScanID                 int64
	ScanUUID               string
	ScanTimestamp          time.Time
	DurationSec            int64
	AccountCount           int
	FailedAccounts         int
	WebACLCount            int
	DistributionCount      int
	ProtectedDistributions int
	LoadBalancerCount      int
	ProtectedLoadBalancers int
	Version                string
	ReportPath             string
}

// AccountSummary is the per-profile breakdown of a stored scan.
type AccountSummary struct {
	Profile                string
	AccountID              string
	Error                  string
	WebACLCount            int
	DistributionCount      int
	ProtectedDistributions int
	LoadBalancerCount      int
	ProtectedLoadBalancers int
}
