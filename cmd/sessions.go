package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// SessionsPrune deletes idle sessions from the configured backend and prints the count.
//
// Only the sqlite backend holds sessions outside a running server; memory starts empty
// and redis expires keys on its own, so both report zero.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if cmd != nil && cmd.IsSet("backend") {
		r.config.Session.Backend = cmd.String("backend")
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Prune(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("pruned sessions", "backend", r.config.Session.Backend, "removed", removed)
	return r.writePlain("Removed %d idle session(s).\n", removed)
}
