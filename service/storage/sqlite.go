// Package storage keeps scan history in a local SQLite database so operators
// can review past runs without digging through JSON files.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thirukguru/waf-perimeter/model"
	_ "modernc.org/sqlite"
)

const defaultDBPath = "~/.waf-perimeter/history.db"

// NewService creates a SQLite-backed history store.
func NewService(dbPath string) (Service, error) {
	resolved, err := resolvePath(dbPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaV1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &service{db: db, dbPath: resolved}, nil
}

type service struct {
	db     *sql.DB
	dbPath string
}

func resolvePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = defaultDBPath
	}
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home dir: %w", err)
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(p), nil
}

func (s *service) SaveScan(ctx context.Context, input SaveScanInput) (int64, error) {
	if input.Report == nil {
		return 0, errors.New("report is required")
	}
	if input.Report.ScanUUID == "" {
		return 0, errors.New("report is missing its scan uuid")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	totals := accountCounts{}
	failed := 0
	perAccount := make([]accountCounts, len(input.Report.Accounts))
	for i, acct := range input.Report.Accounts {
		perAccount[i] = countAccount(acct)
		totals.add(perAccount[i])
		if acct.Error != "" {
			failed++
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scans (
			scan_uuid, scan_duration, account_count, failed_accounts,
			web_acl_count, distribution_count, protected_distributions,
			load_balancer_count, protected_load_balancers,
			cli_version, report_path, scan_flags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, input.Report.ScanUUID, int64(input.Duration.Seconds()), len(input.Report.Accounts), failed,
		totals.webACLs, totals.distributions, totals.protectedDists,
		totals.loadBalancers, totals.protectedLBs,
		input.Report.ToolVersion, input.ReportPath, input.FlagsJSON)
	if err != nil {
		return 0, err
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, acct := range input.Report.Accounts {
		c := perAccount[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_accounts (
				scan_id, profile, account_id, error,
				web_acl_count, distribution_count, protected_distributions,
				load_balancer_count, protected_load_balancers
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, scanID, acct.Profile, acct.AccountID, acct.Error,
			c.webACLs, c.distributions, c.protectedDists, c.loadBalancers, c.protectedLBs)
		if err != nil {
			return 0, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return scanID, nil
}

type accountCounts struct {
	webACLs        int
	distributions  int
	protectedDists int
	loadBalancers  int
	protectedLBs   int
}

func (c *accountCounts) add(o accountCounts) {
	c.webACLs += o.webACLs
	c.distributions += o.distributions
	c.protectedDists += o.protectedDists
	c.loadBalancers += o.loadBalancers
	c.protectedLBs += o.protectedLBs
}

func countAccount(acct model.AccountReport) accountCounts {
	c := accountCounts{webACLs: len(acct.CloudFront.WebACLs)}
	for _, d := range acct.CloudFront.Distributions {
		c.distributions++
		if d.Protected {
			c.protectedDists++
		}
	}
	for _, region := range acct.Regions {
		c.webACLs += len(region.WebACLs)
		for _, lb := range region.LoadBalancers {
			c.loadBalancers++
			if lb.Protected {
				c.protectedLBs++
			}
		}
	}
	return c
}

func (s *service) GetRecentScans(limit int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT scan_id, scan_uuid, scan_timestamp, scan_duration, account_count, failed_accounts,
			web_acl_count, distribution_count, protected_distributions,
			load_balancer_count, protected_load_balancers, cli_version, report_path
		FROM scans
		ORDER BY scan_timestamp DESC, scan_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []ScanSummary{}
	for rows.Next() {
		var ssum ScanSummary
		if err := rows.Scan(&ssum.ScanID, &ssum.ScanUUID, &ssum.ScanTimestamp, &ssum.DurationSec,
			&ssum.AccountCount, &ssum.FailedAccounts, &ssum.WebACLCount,
			&ssum.DistributionCount, &ssum.ProtectedDistributions,
			&ssum.LoadBalancerCount, &ssum.ProtectedLoadBalancers,
			&ssum.Version, &ssum.ReportPath); err != nil {
			return nil, err
		}
		scans = append(scans, ssum)
	}
	return scans, rows.Err()
}

func (s *service) GetScanAccounts(scanID int64) ([]AccountSummary, error) {
	rows, err := s.db.Query(`
		SELECT profile, account_id, error,
			web_acl_count, distribution_count, protected_distributions,
			load_balancer_count, protected_load_balancers
		FROM scan_accounts
		WHERE scan_id = ?
		ORDER BY profile ASC
	`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []AccountSummary{}
	for rows.Next() {
		var a AccountSummary
		if err := rows.Scan(&a.Profile, &a.AccountID, &a.Error,
			&a.WebACLCount, &a.DistributionCount, &a.ProtectedDistributions,
			&a.LoadBalancerCount, &a.ProtectedLoadBalancers); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *service) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("days must be > 0")
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scans WHERE scan_timestamp < DATETIME('now', ?)
	`, fmt.Sprintf("-%d day", days))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *service) Close() error {
	return s.db.Close()
}
