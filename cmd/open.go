package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v3"
)

// Open launches the default browser at the server's /auth/start route.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	target := r.startURL()
	if err := r.writePlain("Opening %s\n", target); err != nil {
		return err
	}
	if err := r.openURL(target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

func (r *Runner) startURL() string {
	host := r.config.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(r.config.Server.Port)),
		Path:   "/auth/start",
	}
	return u.String()
}
