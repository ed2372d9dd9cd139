package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"piktram/internal/models"
	"piktram/internal/seed"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.store.Driver())
			return nil
		},
	}
}

func newReconcileCmd(configPath *string) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute project progress from task statuses",
		Long:  "Recomputes the stored progress of every project, or of one owner's projects with --owner, and prints what changed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			caller := models.Admin()
			if owner != "" {
				caller = models.As(owner)
			}
			results, err := a.reconciler.RecomputeAll(cmd.Context(), caller)

			out := cmd.OutOrStdout()
			changed := 0
			for _, p := range results {
				if !p.Written {
					continue
				}
				changed++
				fmt.Fprintf(out, "project %d: %d%% -> %d%% (%d/%d complete)\n", p.ProjectID, p.Previous, p.Progress, p.Completed, p.Total)
			}
			fmt.Fprintf(out, "%d projects checked, %d updated\n", len(results), changed)
			if err != nil {
				a.logger.Warn("reconcile finished with errors", slog.String("error", err.Error()))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only recompute projects of this user id")
	return cmd
}

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load demo users, projects and tasks from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.ParseFile(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := seed.Apply(cmd.Context(), a.store, a.reconciler, fixture, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d projects (%d skipped), %d tasks\n",
				res.Users, res.Projects, res.SkippedProjects, res.Tasks)
			return nil
		},
	}
}
