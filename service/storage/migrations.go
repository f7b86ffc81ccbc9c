package storage

const schemaV1 = `
CREATE TABLE IF NOT EXISTS scans (
    scan_id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_uuid                TEXT UNIQUE NOT NULL,
    scan_timestamp           DATETIME DEFAULT CURRENT_TIMESTAMP,
    scan_duration            INTEGER,
    account_count            INTEGER DEFAULT 0,
    failed_accounts          INTEGER DEFAULT 0,
    web_acl_count            INTEGER DEFAULT 0,
    distribution_count       INTEGER DEFAULT 0,
    protected_distributions  INTEGER DEFAULT 0,
    load_balancer_count      INTEGER DEFAULT 0,
    protected_load_balancers INTEGER DEFAULT 0,
    cli_version              TEXT,
    report_path              TEXT,
    scan_flags               TEXT,
    created_at               DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_scans_timestamp
    ON scans(scan_timestamp DESC);

CREATE TABLE IF NOT EXISTS scan_accounts (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id                  INTEGER NOT NULL,
    profile                  TEXT NOT NULL,
    account_id               TEXT,
    error                    TEXT,
    web_acl_count            INTEGER DEFAULT 0,
    distribution_count       INTEGER DEFAULT 0,
    protected_distributions  INTEGER DEFAULT 0,
    load_balancer_count      INTEGER DEFAULT 0,
    protected_load_balancers INTEGER DEFAULT 0,
    FOREIGN KEY(scan_id) REFERENCES scans(scan_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_scan_accounts_scan
    ON scan_accounts(scan_id);
`
