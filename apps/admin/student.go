package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core/dashboard"
)

// student mounts the dashboard of a student and prints its snapshot as JSON.
func (cli *commandLine) student(ctx context.Context, id string) error {
	view := dashboard.NewView(id, cli.initial, cli.fetcher, cli.logger)
	defer view.Unmount()

	if err := view.Mount(ctx); err != nil {
		return errors.Wrap(err, "mounting dashboard")
	}
	snap := view.Snapshot()
	if snap.Student == nil {
		return errors.Errorf("student %q not found", id)
	}

	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(snap), "printing snapshot")
}
