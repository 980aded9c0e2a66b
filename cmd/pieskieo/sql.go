package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

func addSQLCommands(root *cobra.Command, o *rootOptions) {
	root.AddCommand(newSQLCmd(o), newSchemaCmd(o))
}

func newSQLCmd(o *rootOptions) *cobra.Command {
	var (
		stmt  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Execute a SQL statement",
		Long: `Execute a SQL statement against the unified store. The result kind is
select (rows), insert (ids) or write (affected count).

Examples:
  pieskieo sql --sql "SELECT * FROM docs WHERE lang = 'en'" --limit 10
  pieskieo sql --sql "DELETE FROM rows WHERE archived = true"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var lim *int
			if cmd.Flags().Changed("limit") {
				lim = &limit
			}
			res, err := o.client.QuerySQL(cmd.Context(), stmt, lim)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&stmt, "sql", "", "SQL statement (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (sent only when given)")
	_ = cmd.MarkFlagRequired("sql")
	return cmd
}

func newSchemaCmd(o *rootOptions) *cobra.Command {
	var (
		family    string
		name      string
		namespace string
		fields    string
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Declare field constraints for a collection or table",
		Long: `Declare field constraints for a document collection or row table.

Example:
  pieskieo schema --family doc --name users \
    --fields '{"email":{"required":true,"unique":true,"type":"string"}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch family {
			case pieskieo.SchemaFamilyDoc, pieskieo.SchemaFamilyRow:
			default:
				return fmt.Errorf("invalid family %q: expected doc or row", family)
			}
			s := pieskieo.Schema{Family: family, Name: name, Namespace: namespace}
			if fields != "" {
				if err := json.Unmarshal([]byte(fields), &s.Fields); err != nil {
					return fmt.Errorf("parse fields: %w", err)
				}
			}
			if err := o.client.SetSchema(cmd.Context(), s); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().StringVar(&family, "family", pieskieo.SchemaFamilyDoc, "doc or row")
	cmd.Flags().StringVar(&name, "name", "", "collection or table name (required)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace")
	cmd.Flags().StringVar(&fields, "fields", "", "field constraints as a JSON object")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
