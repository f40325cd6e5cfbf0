package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/gridlink/engine/topology"
	"github.com/WessleyAI/gridlink/pkg/config"
)

// snapshotStore is the part of topology.Store the snapshots commands use.
type snapshotStore interface {
	List(ctx context.Context, offset, limit int) ([]topology.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// openSnapshots connects to the configured Neo4j database.
var openSnapshots = func(ctx context.Context, cfg config.Neo4jConfig) (snapshotStore, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("neo4j is not configured (set neo4j.url or NEO4J_URL)")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URL, neo4j.BasicAuth(cfg.User, cfg.Pass, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("neo4j connect: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, nil, fmt.Errorf("neo4j verify: %w", err)
	}
	store, err := topology.NewDriverStore(driver, nil)
	if err != nil {
		driver.Close(ctx)
		return nil, nil, err
	}
	return store, func() { driver.Close(context.Background()) }, nil
}

func newSnapshotsCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and prune network snapshots stored in Neo4j",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withSnapshots(cmd, func(ctx context.Context, s snapshotStore) error {
				snaps, err := s.List(ctx, 0, limit)
				if err != nil {
					return err
				}
				if g.pretty {
					data, err := json.MarshalIndent(snaps, "", "  ")
					if err != nil {
						return err
					}
					return g.write(cmd, append(data, '\n'))
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCALC\tUSER\tBUSES\tELEMENTS\tCREATED")
				for _, s := range snaps {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", s.ID, s.Calc, s.User, s.Buses, s.Elements, s.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Maximum snapshots to list")

	del := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete snapshots and their buses and elements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSnapshots(cmd, func(ctx context.Context, s snapshotStore) error {
				for _, id := range args {
					if err := s.Delete(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "deleted %s\n", id)
				}
				return nil
			})
		},
	}

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 0 {
				return fmt.Errorf("invalid --keep %d", keep)
			}
			return g.withSnapshots(cmd, func(ctx context.Context, s snapshotStore) error {
				deleted := 0
				for {
					old, err := s.List(ctx, keep, 100)
					if err != nil {
						return err
					}
					if len(old) == 0 {
						break
					}
					for _, snap := range old {
						if err := s.Delete(ctx, snap.ID); err != nil {
							return err
						}
						deleted++
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d snapshots\n", deleted)
				return nil
			})
		},
	}
	prune.Flags().IntVar(&keep, "keep", 20, "Number of newest snapshots to keep")

	cmd.AddCommand(list, del, prune)
	return cmd
}

func (g *globalOpts) withSnapshots(cmd *cobra.Command, f func(context.Context, snapshotStore) error) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeFn, err := openSnapshots(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer closeFn()
	return f(ctx, store)
}
