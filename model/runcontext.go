package model

// RunContext carries the state established during the pre-scan checks between
// steps, so nothing downstream depends on ambient process state.
type RunContext struct {
	ConfigPath    string
	ConfigPresent bool
	ProfileCount  int
	RegionCount   int
	Profile       string
	AccountID     string
	LoggedIn      bool
	ScanReady     bool
}
