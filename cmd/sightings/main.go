// Command sightings serves and builds the UFO sighting analytics snapshots.
//
// Usage:
//
//	sightings serve     # HTTP query API over the current snapshots
//	sightings build     # normalize, cluster, and write the snapshots
//	sightings validate  # check snapshot integrity
package main

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/sighting-analytics-service/cmd/sightings/build"
	"github.com/couchcryptid/sighting-analytics-service/cmd/sightings/serve"
	"github.com/couchcryptid/sighting-analytics-service/cmd/sightings/validate"
	"github.com/couchcryptid/sighting-analytics-service/internal/app"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand(&app.Context{}).Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sightings",
		Short:         "UFO sighting analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return ctx.Init()
		},
	}

	rootCmd.AddCommand(
		serve.Command(ctx),
		build.Command(ctx),
		validate.Command(ctx),
	)
	return rootCmd
}
