package model

// ScanReport is the top-level document written to waf_config_<timestamp>.json
// and consumed by the analyze command.
type ScanReport struct {
	SchemaVersion int             `json:"schema_version"`
	ScanUUID      string          `json:"scan_uuid"`
	GeneratedAt   string          `json:"generated_at"`
	ToolVersion   string          `json:"tool_version"`
	Accounts      []AccountReport `json:"accounts"`
}

// AccountReport holds everything collected for one profile. A failed profile
// keeps its slot in the report with Error set, so partial results survive.
type AccountReport struct {
	Profile    string                `json:"profile"`
	AccountID  string                `json:"account_id,omitempty"`
	ScanTime   string                `json:"scan_time"`
	Error      string                `json:"error,omitempty"`
	CloudFront CloudFrontScopeReport `json:"cloudfront_scope"`
	Regions    []RegionReport        `json:"regions"`
}

// CloudFrontScopeReport covers the CLOUDFRONT WAF scope, which AWS pins to
// us-east-1 regardless of where distributions serve from.
type CloudFrontScopeReport struct {
	WebACLs       []WebACLRecord            `json:"web_acls"`
	Distributions []DistributionAssociation `json:"distributions"`
}

// RegionReport covers the REGIONAL WAF scope for one region.
type RegionReport struct {
	Region        string                    `json:"region"`
	Error         string                    `json:"error,omitempty"`
	WebACLs       []WebACLRecord            `json:"web_acls"`
	LoadBalancers []LoadBalancerAssociation `json:"load_balancers"`
}

// WebACLRecord is a Web ACL with its resolved associations.
type WebACLRecord struct {
	Name                   string   `json:"name"`
	ID                     string   `json:"id"`
	ARN                    string   `json:"arn"`
	Scope                  string   `json:"scope"`
	Description            string   `json:"description,omitempty"`
	RuleCount              int      `json:"rule_count"`
	Capacity               int64    `json:"capacity"`
	DefaultAction          string   `json:"default_action"`
	AssociatedResourceARNs []string `json:"associated_resource_arns"`
}

// DistributionAssociation records whether a CloudFront distribution carries a
// Web ACL. An empty WebACLID means the distribution is unprotected.
type DistributionAssociation struct {
	DistributionID string `json:"distribution_id"`
	DomainName     string `json:"domain_name"`
	Status         string `json:"status"`
	Enabled        bool   `json:"enabled"`
	WebACLID       string `json:"web_acl_id,omitempty"`
	WebACLName     string `json:"web_acl_name,omitempty"`
	Protected      bool   `json:"protected"`
}

// LoadBalancerAssociation records WAF protection for one ALB.
type LoadBalancerAssociation struct {
	Name       string `json:"name"`
	ARN        string `json:"arn"`
	DNSName    string `json:"dns_name"`
	Type       string `json:"type"`
	Scheme     string `json:"scheme"`
	State      string `json:"state"`
	WebACLARN  string `json:"web_acl_arn,omitempty"`
	WebACLName string `json:"web_acl_name,omitempty"`
	Protected  bool   `json:"protected"`
}
