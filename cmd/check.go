package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/desertthunder/tunegate/internal/shared"
	"github.com/desertthunder/tunegate/internal/ui"
	"github.com/urfave/cli/v3"
)

// CheckConfig reports which settings are present. Secrets are described by length only.
func (r *Runner) CheckConfig(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	report := configReport(r.config)
	report.Hint = fmt.Sprintf("config: %s (CLIENT_ID, CLIENT_SECRET, CALLBACK_URL and PORT override it)", r.configPath)

	if cmd != nil && cmd.Bool("json") {
		out := checkOutput{Config: r.configPath, Passed: report.Passed(), Checks: report.Checks}
		if err := r.writeJSON(out, true); err != nil {
			return err
		}
	} else if err := r.writePlain("%s", report.Render()); err != nil {
		return err
	}
	if !report.Passed() {
		return fmt.Errorf("%w: configuration incomplete", shared.ErrConfig)
	}
	return nil
}

type checkOutput struct {
	Config string     `json:"config"`
	Passed bool       `json:"passed"`
	Checks []ui.Check `json:"checks"`
}

func configReport(cfg *shared.Config) *ui.Report {
	creds := cfg.Credentials.Spotify
	report := ui.NewReport("OAuth configuration")

	report.Add("client_id", creds.ClientID != "", describeSecret(creds.ClientID))
	report.Add("client_secret", creds.ClientSecret != "", describeSecret(creds.ClientSecret))

	redirect := "missing"
	if creds.RedirectURI != "" {
		redirect = creds.RedirectURI
		if !creds.RedirectIsAbsolute() {
			redirect += " (not absolute)"
		}
	}
	report.Add("redirect_uri", creds.RedirectIsAbsolute(), redirect)

	for _, endpoint := range []struct{ name, value string }{
		{"auth_url", cfg.Provider.AuthURL},
		{"token_url", cfg.Provider.TokenURL},
		{"api_url", cfg.Provider.APIURL},
	} {
		u, err := url.Parse(endpoint.value)
		report.Add(endpoint.name, err == nil && u.Scheme != "" && u.Host != "", endpoint.value)
	}

	report.Add("session backend", validBackend(cfg.Session.Backend), cfg.Session.Backend)
	report.Advise("cookie_secure", cfg.Server.CookieSecure, secureDetail(cfg.Server.CookieSecure))
	return report
}

func describeSecret(v string) string {
	if v == "" {
		return "missing"
	}
	return fmt.Sprintf("set (%d chars)", len(v))
}

func secureDetail(secure bool) string {
	if secure {
		return "enabled"
	}
	return "disabled; enable behind HTTPS"
}

func validBackend(name string) bool {
	switch name {
	case "", "memory", "sqlite", "redis":
		return true
	}
	return false
}
