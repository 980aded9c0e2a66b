package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/pieskieo/pieskieo-go/internal/logger"
	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

// recordFamily maps the shared doc/row command shape onto the matching client calls.
type recordFamily struct {
	noun     string // doc, row
	groupKey string // collection, table

	put    func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, data any, ns, group string) (uuid.UUID, error)
	get    func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, ns, group string) (json.RawMessage, error)
	delete func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, ns, group string) error
	query  func(c *pieskieo.Client, ctx context.Context, in pieskieo.QueryInput) ([]pieskieo.Record, error)
}

var docFamily = recordFamily{
	noun:     "doc",
	groupKey: "collection",
	put: func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, data any, ns, group string) (uuid.UUID, error) {
		return c.PutDoc(ctx, pieskieo.DocInput{ID: id, Data: data, Namespace: ns, Collection: group})
	},
	get: func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, ns, group string) (json.RawMessage, error) {
		return c.GetDoc(ctx, id, pieskieo.DocScope{Namespace: ns, Collection: group})
	},
	delete: func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, ns, group string) error {
		return c.DeleteDoc(ctx, id, pieskieo.DocScope{Namespace: ns, Collection: group})
	},
	query: (*pieskieo.Client).QueryDocs,
}

var rowFamily = recordFamily{
	noun:     "row",
	groupKey: "table",
	put: func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, data any, ns, group string) (uuid.UUID, error) {
		return c.PutRow(ctx, pieskieo.RowInput{ID: id, Data: data, Namespace: ns, Table: group})
	},
	get: func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, ns, group string) (json.RawMessage, error) {
		return c.GetRow(ctx, id, pieskieo.RowScope{Namespace: ns, Table: group})
	},
	delete: func(c *pieskieo.Client, ctx context.Context, id uuid.UUID, ns, group string) error {
		return c.DeleteRow(ctx, id, pieskieo.RowScope{Namespace: ns, Table: group})
	},
	query: (*pieskieo.Client).QueryRows,
}

func addRecordCommands(root *cobra.Command, o *rootOptions, f recordFamily) {
	root.AddCommand(
		newPutRecordCmd(o, f),
		newGetRecordCmd(o, f),
		newDeleteRecordCmd(o, f),
		newQueryRecordCmd(o, f),
	)
}

// scopeFlags are the namespace and collection/table flags shared by record commands.
type scopeFlags struct {
	namespace string
	group     string
}

func (s *scopeFlags) register(cmd *cobra.Command, f recordFamily) {
	cmd.Flags().StringVar(&s.namespace, "namespace", "", "namespace")
	cmd.Flags().StringVar(&s.group, f.groupKey, "", f.groupKey+" name")
}

func newPutRecordCmd(o *rootOptions, f recordFamily) *cobra.Command {
	var (
		id    string
		input string
		scope scopeFlags
	)
	cmd := &cobra.Command{
		Use:   "put-" + f.noun,
		Short: "Store a " + f.noun,
		Long: fmt.Sprintf(`Store a JSON %[1]s. Without --id a new id is generated.
Pass --json - to read the %[1]s from stdin.

Examples:
  pieskieo put-%[1]s --json '{"title":"hello"}' --%[2]s notes
  cat item.json | pieskieo put-%[1]s --json -`, f.noun, f.groupKey),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readJSON(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			var recID uuid.UUID
			if id != "" {
				if recID, err = parseID(id); err != nil {
					return err
				}
			}
			got, err := f.put(o.client, cmd.Context(), recID, data, scope.namespace, scope.group)
			if err != nil {
				return err
			}
			logpkg.FromContext(cmd.Context()).Debug("stored "+f.noun,
				zap.Stringer("id", got),
				zap.String(f.groupKey, scope.group),
				zap.Int("bytes", len(data)),
			)
			return printJSON(cmd.OutOrStdout(), map[string]uuid.UUID{"id": got})
		},
	}
	cmd.Flags().StringVar(&input, "json", "", "JSON payload, or - for stdin (required)")
	cmd.Flags().StringVar(&id, "id", "", f.noun+" id (default: generated)")
	scope.register(cmd, f)
	_ = cmd.MarkFlagRequired("json")
	return cmd
}

func newGetRecordCmd(o *rootOptions, f recordFamily) *cobra.Command {
	var scope scopeFlags
	cmd := &cobra.Command{
		Use:   "get-" + f.noun + " ID",
		Short: "Fetch a " + f.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			data, err := f.get(o.client, cmd.Context(), id, scope.namespace, scope.group)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	scope.register(cmd, f)
	return cmd
}

func newDeleteRecordCmd(o *rootOptions, f recordFamily) *cobra.Command {
	var scope scopeFlags
	cmd := &cobra.Command{
		Use:   "delete-" + f.noun + " ID",
		Short: "Delete a " + f.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := f.delete(o.client, cmd.Context(), id, scope.namespace, scope.group); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "deleted": true})
		},
	}
	scope.register(cmd, f)
	return cmd
}

func newQueryRecordCmd(o *rootOptions, f recordFamily) *cobra.Command {
	var (
		filters []string
		limit   int
		offset  int
		sql     string
		scope   scopeFlags
	)
	cmd := &cobra.Command{
		Use:   "query-" + f.noun,
		Short: "Query " + f.noun + "s by field equality or SQL",
		Long: fmt.Sprintf(`Query %[1]ss. Each --filter key=value matches a top-level field; values
that parse as JSON are compared as JSON (numbers, booleans), anything else
as a string. --sql replaces every other option.

Examples:
  pieskieo query-%[1]s --filter lang=en --filter year=2024 --limit 20
  pieskieo query-%[1]s --sql "SELECT * FROM %[1]ss"`, f.noun),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilters(filters)
			if err != nil {
				return err
			}
			in := pieskieo.QueryInput{
				Filter:    filter,
				Limit:     limit,
				Offset:    offset,
				Namespace: scope.namespace,
				SQL:       sql,
			}
			if f.groupKey == "table" {
				in.Table = scope.group
			} else {
				in.Collection = scope.group
			}
			records, err := f.query(o.client, cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field equality as key=value (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", pieskieo.DefaultQueryLimit, "maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of results to skip")
	cmd.Flags().StringVar(&sql, "sql", "", "SQL statement (overrides other query flags)")
	scope.register(cmd, f)
	return cmd
}

// readJSON returns the payload given inline or, for "-", read from r.
func readJSON(r io.Reader, input string) (json.RawMessage, error) {
	raw := []byte(input)
	if input == "-" {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", p)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		filter[key] = v
	}
	return filter, nil
}
