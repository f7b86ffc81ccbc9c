// Package session validates AWS credential sessions per profile and drives
// the interactive SSO login flow when a cached session has expired.
package session

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	awssts "github.com/thirukguru/waf-perimeter/service/sts"
	"gopkg.in/ini.v1"
)

// Status is the outcome of validating one profile.
type Status struct {
	Profile   string
	LoggedIn  bool
	AccountID string
	Err       string
}

// stsFactory builds the identity service for a profile. Injected so tests can
// validate the login flow without AWS.
type stsFactory func(ctx context.Context, profile string) (awssts.Service, error)

// prompter asks the operator a yes/no question. The default reads stdin.
type prompter func(question string) bool

// loginRunner launches the interactive SSO login for a profile. The default
// execs `aws sso login --profile <p>` with inherited stdio; arguments are
// passed as an argv vector, never through a shell.
type loginRunner func(ctx context.Context, profile string) error

// Service is the interface for session validation.
type Service interface {
	Validate(ctx context.Context, profile string) Status
	EnsureLoggedIn(ctx context.Context, profile string) Status
	ResolveProfile(preferred []string) (string, error)
}

type service struct {
	newSTS stsFactory
	ask    prompter
	login  loginRunner
}

// NewService creates a session service backed by real STS calls and the aws
// CLI login flow.
func NewService(newSTS stsFactory) Service {
	return &service{
		newSTS: newSTS,
		ask:    stdinPrompt,
		login:  runSSOLogin,
	}
}

// Validate issues an identity check against the profile. It never prompts.
func (s *service) Validate(ctx context.Context, profile string) Status {
	status := Status{Profile: profile}

	stsSvc, err := s.newSTS(ctx, profile)
	if err != nil {
		status.Err = err.Error()
		return status
	}

	identity, err := stsSvc.GetCallerIdentity(ctx)
	if err != nil {
		status.Err = err.Error()
		return status
	}

	status.LoggedIn = true
	if identity.Account != nil {
		status.AccountID = *identity.Account
	}
	return status
}

// EnsureLoggedIn validates the profile and, on failure, offers the interactive
// SSO login before re-validating. Declining the prompt leaves the session
// invalid; no scan may proceed from that state.
func (s *service) EnsureLoggedIn(ctx context.Context, profile string) Status {
	status := s.Validate(ctx, profile)
	if status.LoggedIn {
		return status
	}

	fmt.Printf("  %s session invalid for profile %s: %s\n", text.FgRed.Sprint("✗"), profile, status.Err)

	if !s.ask(fmt.Sprintf("Run 'aws sso login --profile %s' now? [y/N]: ", profile)) {
		return status
	}

	if err := s.login(ctx, profile); err != nil {
		status.Err = fmt.Sprintf("sso login failed: %v", err)
		return status
	}

	return s.Validate(ctx, profile)
}

// ResolveProfile picks the profile to validate: the first preferred name when
// given, otherwise the first locally configured profile whose name matches the
// administrator-role naming convention.
func (s *service) ResolveProfile(preferred []string) (string, error) {
	for _, p := range preferred {
		if strings.TrimSpace(p) != "" {
			return strings.TrimSpace(p), nil
		}
	}

	profiles, err := ConfiguredProfiles()
	if err != nil {
		return "", err
	}
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p), "admin") {
			return p, nil
		}
	}

	return "", fmt.Errorf("no preferred profile and no admin-like profile found in local AWS config")
}

// ConfiguredProfiles enumerates profile names from the AWS shared config file.
func ConfiguredProfiles() ([]string, error) {
	path := os.Getenv("AWS_CONFIG_FILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".aws", "config")
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AWS config %s: %w", path, err)
	}

	return ProfilesFromINI(cfg), nil
}

// ProfilesFromINI extracts profile names from a parsed AWS shared config.
// Sections are named either "default" or "profile <name>".
func ProfilesFromINI(cfg *ini.File) []string {
	var profiles []string
	for _, section := range cfg.Sections() {
		name := section.Name()
		switch {
		case name == "default":
			profiles = append(profiles, name)
		case strings.HasPrefix(name, "profile "):
			p := strings.TrimSpace(strings.TrimPrefix(name, "profile "))
			if p != "" {
				profiles = append(profiles, p)
			}
		}
	}
	return profiles
}

func stdinPrompt(question string) bool {
	fmt.Print(question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runSSOLogin(ctx context.Context, profile string) error {
	cmd := exec.CommandContext(ctx, "aws", "sso", "login", "--profile", profile)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
