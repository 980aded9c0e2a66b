package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

func addVectorCommands(root *cobra.Command, o *rootOptions) {
	root.AddCommand(
		newPutVectorCmd(o),
		newSearchVectorCmd(o),
		newGetVectorCmd(o),
		newDeleteVectorCmd(o),
		newUpdateMetaCmd(o),
		newDeleteMetaCmd(o),
		newVectorConfigCmd(o),
		newMaintenanceCmd(o, "rebuild", "Rebuild the vector index", (*pieskieo.Client).RebuildVectors),
		newMaintenanceCmd(o, "vacuum", "Reclaim space from deleted vectors", (*pieskieo.Client).VacuumVectors),
		newMaintenanceCmd(o, "snapshot", "Save a server snapshot", (*pieskieo.Client).SaveSnapshot),
	)
}

func newPutVectorCmd(o *rootOptions) *cobra.Command {
	var (
		values    []float32
		id        string
		namespace string
		meta      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "put-vector",
		Short: "Store a vector",
		Long: `Store a vector with optional metadata. Without --id a new id is generated.

Examples:
  pieskieo put-vector --values 0.1,0.2,0.3
  pieskieo put-vector --id 6f1c... --values 1,0,0 --meta lang=en,source=wiki`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := pieskieo.VectorInput{Vector: values, Namespace: namespace}
			if id != "" {
				parsed, err := parseID(id)
				if err != nil {
					return err
				}
				in.ID = parsed
			}
			if cmd.Flags().Changed("meta") {
				in.Meta = meta
			}
			got, err := o.client.PutVector(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]uuid.UUID{"id": got})
		},
	}
	cmd.Flags().Float32SliceVar(&values, "values", nil, "vector components, comma-separated (required)")
	cmd.Flags().StringVar(&id, "id", "", "vector id (default: generated)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata as key=value pairs")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newSearchVectorCmd(o *rootOptions) *cobra.Command {
	var (
		query      []float32
		k          int
		metric     string
		namespace  string
		efSearch   int
		filterMeta map[string]string
		filterIDs  []string
	)
	cmd := &cobra.Command{
		Use:   "search-vector",
		Short: "Find the nearest vectors to a query",
		Long: `Search for the k vectors nearest to the query.

Examples:
  pieskieo search-vector --query 0.1,0.2,0.3 --k 5
  pieskieo search-vector --query 1,0 --metric l2 --filter-meta lang=en`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := pieskieo.VectorSearchRequest{
				Query:      query,
				K:          k,
				Metric:     metric,
				Namespace:  namespace,
				FilterMeta: filterMeta,
			}
			if cmd.Flags().Changed("ef-search") {
				req.EfSearch = &efSearch
			}
			for _, s := range filterIDs {
				parsed, err := parseID(s)
				if err != nil {
					return err
				}
				req.FilterIDs = append(req.FilterIDs, parsed)
			}
			hits, err := o.client.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hits)
		},
	}
	cmd.Flags().Float32SliceVar(&query, "query", nil, "query vector, comma-separated (required)")
	cmd.Flags().IntVar(&k, "k", pieskieo.DefaultK, "number of results")
	cmd.Flags().StringVar(&metric, "metric", pieskieo.DefaultMetric, "distance metric: l2, cosine, dot")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace")
	cmd.Flags().IntVar(&efSearch, "ef-search", 0, "HNSW ef_search for this query")
	cmd.Flags().StringToStringVar(&filterMeta, "filter-meta", nil, "metadata filter as key=value pairs")
	cmd.Flags().StringSliceVar(&filterIDs, "filter-id", nil, "restrict results to these ids")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newGetVectorCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-vector ID",
		Short: "Fetch a stored vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := o.client.GetVector(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newDeleteVectorCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-vector ID",
		Short: "Delete a vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := o.client.DeleteVector(cmd.Context(), id); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "deleted": true})
		},
	}
}

func newUpdateMetaCmd(o *rootOptions) *cobra.Command {
	var meta map[string]string
	cmd := &cobra.Command{
		Use:   "update-meta ID",
		Short: "Merge metadata into a vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := o.client.UpdateMeta(cmd.Context(), id, meta); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "updated": true})
		},
	}
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata as key=value pairs (required)")
	_ = cmd.MarkFlagRequired("meta")
	return cmd
}

func newDeleteMetaCmd(o *rootOptions) *cobra.Command {
	var keys []string
	cmd := &cobra.Command{
		Use:   "delete-meta ID",
		Short: "Remove metadata keys from a vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := o.client.DeleteMetaKeys(cmd.Context(), id, keys); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "updated": true})
		},
	}
	cmd.Flags().StringSliceVar(&keys, "key", nil, "metadata key to remove (repeatable, required)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVectorConfigCmd(o *rootOptions) *cobra.Command {
	var efSearch, efConstruction, linkTopK int
	cmd := &cobra.Command{
		Use:   "vector-config",
		Short: "Adjust vector index parameters",
		Long: `Adjust vector index parameters. Only flags that are given are sent.

Example:
  pieskieo vector-config --ef-search 128`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg pieskieo.VectorConfig
			if cmd.Flags().Changed("ef-search") {
				cfg.EfSearch = &efSearch
			}
			if cmd.Flags().Changed("ef-construction") {
				cfg.EfConstruction = &efConstruction
			}
			if cmd.Flags().Changed("link-top-k") {
				cfg.LinkTopK = &linkTopK
			}
			if err := o.client.UpdateVectorConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().IntVar(&efSearch, "ef-search", 0, "HNSW ef_search")
	cmd.Flags().IntVar(&efConstruction, "ef-construction", 0, "HNSW ef_construction")
	cmd.Flags().IntVar(&linkTopK, "link-top-k", 0, "number of graph links created per inserted vector")
	return cmd
}

func newMaintenanceCmd(o *rootOptions, use, short string, op func(*pieskieo.Client, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := op(o.client, cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"status": "ok"})
		},
	}
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
