package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

func addTextCommands(root *cobra.Command, o *rootOptions) {
	root.AddCommand(newPutTextCmd(o), newSearchTextCmd(o))
}

func newPutTextCmd(o *rootOptions) *cobra.Command {
	var (
		id        string
		namespace string
		meta      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "put-text TEXT",
		Short: "Embed text and store it as a vector",
		Long: `Embed text with the configured provider and store the embedding.
Requires embedding.api_key in the profile.

Example:
  pieskieo put-text "the quick brown fox" --meta lang=en`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := pieskieo.VectorInput{Namespace: namespace}
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
			got, err := o.client.PutText(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]uuid.UUID{"id": got})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "vector id (default: generated)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata as key=value pairs")
	return cmd
}

func newSearchTextCmd(o *rootOptions) *cobra.Command {
	var (
		k         int
		metric    string
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "search-text TEXT",
		Short: "Embed text and search for the nearest vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hits, err := o.client.SearchText(cmd.Context(), args[0], pieskieo.VectorSearchRequest{
				K:         k,
				Metric:    metric,
				Namespace: namespace,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hits)
		},
	}
	cmd.Flags().IntVar(&k, "k", pieskieo.DefaultK, "number of results")
	cmd.Flags().StringVar(&metric, "metric", pieskieo.DefaultMetric, "distance metric: l2, cosine, dot")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace")
	return cmd
}
