package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbdb-network/cbdbnet/client"
)

// parseIDs parses positional person IDs.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid person id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitTypes splits a --types flag value.
func splitTypes(s string) []string {
	var types []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func newPersonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "person <id>",
		Short: "Show a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			p, err := apiClient.People.Get(context.Background(), ids[0])
			if err != nil {
				return fmt.Errorf("person: %w", err)
			}
			return output(cmd.OutOrStdout(), p, func(w io.Writer) { personTable(w, p) })
		},
	}
}

func newNetworkCmd() *cobra.Command {
	var (
		depth      int
		types      string
		reciprocal bool
	)
	cmd := &cobra.Command{
		Use:   "network <id>",
		Short: "Explore the network around one person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			res, err := apiClient.Network.Person(context.Background(), ids[0], client.NetworkOptions{
				Depth:             depth,
				RelationTypes:     splitTypes(types),
				IncludeReciprocal: reciprocal,
			})
			if err != nil {
				return fmt.Errorf("network: %w", err)
			}
			return output(cmd.OutOrStdout(), res, func(w io.Writer) { networkTable(w, res) })
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "Hops from the person")
	cmd.Flags().StringVar(&types, "types", "", "Relation types: kinship,association,office (default all)")
	cmd.Flags().BoolVar(&reciprocal, "reciprocal", false, "Also follow relations recorded on the other person")
	return cmd
}

// exploreFlags are shared by explore and warm.
type exploreFlags struct {
	depth      int
	types      string
	reciprocal bool
}

func (f *exploreFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.depth, "depth", 1, "Hops from the seeds")
	cmd.Flags().StringVar(&f.types, "types", "", "Relation types: kinship,association,office (default all)")
	cmd.Flags().BoolVar(&f.reciprocal, "reciprocal", false, "Also follow relations recorded on the other person")
}

func (f *exploreFlags) request(ids []int64) client.ExploreRequest {
	depth := f.depth
	return client.ExploreRequest{
		PersonIDs:         ids,
		Depth:             &depth,
		RelationTypes:     splitTypes(f.types),
		IncludeReciprocal: f.reciprocal,
	}
}

func newExploreCmd() *cobra.Command {
	var (
		flags        exploreFlags
		radius       int
		centrality   bool
		exactBridges bool
		stream       bool
	)
	cmd := &cobra.Command{
		Use:   "explore <id> [id...]",
		Short: "Explore the joint network of several persons and find bridges between them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			req := flags.request(ids)
			req.ProximityRadius = radius
			req.IncludeCentrality = centrality
			req.ExactBridges = exactBridges

			var res *client.NetworkResult
			if stream {
				res, err = apiClient.Network.ExploreStream(context.Background(), req, func(p client.Progress) {
					fmt.Fprintf(cmd.ErrOrStderr(), "depth %d: %d persons, %d relations, frontier %d\n",
						p.Depth, p.Nodes, p.Edges, p.FrontierSize)
				})
			} else {
				res, err = apiClient.Network.Explore(context.Background(), req)
			}
			if err != nil {
				return fmt.Errorf("explore: %w", err)
			}
			return output(cmd.OutOrStdout(), res, func(w io.Writer) { networkTable(w, res) })
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&radius, "radius", 0, "Bridge search radius (default: depth)")
	cmd.Flags().BoolVar(&centrality, "centrality", false, "Include per-person centrality scores")
	cmd.Flags().BoolVar(&exactBridges, "exact-bridges", false, "Also report cut vertices")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream per-depth progress over WebSocket")
	return cmd
}

func newWarmCmd() *cobra.Command {
	var flags exploreFlags
	cmd := &cobra.Command{
		Use:   "warm <id> [id...]",
		Short: "Ask the server to precompute and cache an exploration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := apiClient.Network.Warm(context.Background(), flags.request(ids)); err != nil {
				return fmt.Errorf("warm: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "queued")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newRecursiveCmd() *cobra.Command {
	var (
		degrees    int
		maxNodes   int
		types      string
		reciprocal bool
	)
	cmd := &cobra.Command{
		Use:   "recursive <id>",
		Short: "Fetch the network within N degrees using a single recursive query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			res, err := apiClient.Network.Recursive(context.Background(), ids[0], client.RecursiveOptions{
				Degrees:           degrees,
				MaxNodes:          maxNodes,
				RelationTypes:     splitTypes(types),
				IncludeReciprocal: reciprocal,
			})
			if err != nil {
				return fmt.Errorf("recursive: %w", err)
			}
			return output(cmd.OutOrStdout(), res, func(w io.Writer) { recursiveTable(w, res) })
		},
	}
	cmd.Flags().IntVar(&degrees, "degrees", 2, "Degrees of separation")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "Node cap (default: server limit)")
	cmd.Flags().StringVar(&types, "types", "", "Relation types: kinship,association,office (default all)")
	cmd.Flags().BoolVar(&reciprocal, "reciprocal", false, "Also follow relations recorded on the other person")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var reciprocal bool
	cmd := &cobra.Command{
		Use:   "stats <id>",
		Short: "Count a person's relations by type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			stats, err := apiClient.Network.Stats(context.Background(), ids[0], reciprocal)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			return output(cmd.OutOrStdout(), stats, func(w io.Writer) { statsTable(w, stats) })
		},
	}
	cmd.Flags().BoolVar(&reciprocal, "reciprocal", false, "Also count relations recorded on the other person")
	return cmd
}

func newPathCmd() *cobra.Command {
	var types string
	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find a shortest chain of relations between two persons",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			path, err := apiClient.Network.Path(context.Background(), ids[0], ids[1], splitTypes(types))
			if err != nil {
				return fmt.Errorf("path: %w", err)
			}
			return output(cmd.OutOrStdout(), path, func(w io.Writer) { pathTable(w, path) })
		},
	}
	cmd.Flags().StringVar(&types, "types", "", "Relation types: kinship,association,office (default all)")
	return cmd
}
