package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

type traversal func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, limit int) ([]pieskieo.Edge, error)

func addGraphCommands(root *cobra.Command, o *rootOptions) {
	root.AddCommand(
		newAddEdgeCmd(o),
		newTraverseCmd(o, "neighbors", "List the outgoing edges of a node", (*pieskieo.Client).Neighbors),
		newTraverseCmd(o, "bfs", "Walk the graph breadth-first from a node", (*pieskieo.Client).BFS),
		newTraverseCmd(o, "dfs", "Walk the graph depth-first from a node", (*pieskieo.Client).DFS),
	)
}

func newAddEdgeCmd(o *rootOptions) *cobra.Command {
	var weight float32
	cmd := &cobra.Command{
		Use:   "add-edge SRC DST",
		Short: "Create or reweight a directed edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseID(args[0])
			if err != nil {
				return err
			}
			dst, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := o.client.AddEdge(cmd.Context(), src, dst, weight); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pieskieo.Edge{Src: src, Dst: dst, Weight: weight})
		},
	}
	cmd.Flags().Float32Var(&weight, "weight", pieskieo.DefaultEdgeWeight, "edge weight")
	return cmd
}

func newTraverseCmd(o *rootOptions, use, short string, walk traversal) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			edges, err := walk(o.client, cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), edges)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", pieskieo.DefaultTraversalLimit, "maximum number of edges (0 = all)")
	return cmd
}
