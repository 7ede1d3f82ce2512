package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/comigor/triage-go/internal/docstore"
)

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage appointments, patients, doctors and departments in the document store",
	}

	collectionHelp := strings.Join(docstore.Collections, ", ")

	var search string
	list := &cobra.Command{
		Use:   "list <collection>",
		Short: "List records of a collection (" + collectionHelp + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adminList(cmd.Context(), docstore.NewClient(a.cfg.Store), cmd.OutOrStdout(), args[0], search)
		},
	}
	list.Flags().StringVar(&search, "search", "", "only show records whose id or fields contain this text")

	add := &cobra.Command{
		Use:   "add <collection> key=value...",
		Short: "Create a record with a generated id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			id, err := docstore.NewClient(a.cfg.Store).Create(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <collection> <id> key=value...",
		Short: "Merge fields into an existing record",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[2:])
			if err != nil {
				return err
			}
			return docstore.NewClient(a.cfg.Store).Patch(cmd.Context(), args[0], args[1], fields)
		},
	}

	del := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return docstore.NewClient(a.cfg.Store).Delete(cmd.Context(), args[0], args[1])
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Fill every collection with a small sample clinic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := docstore.Seed(cmd.Context(), docstore.NewClient(a.cfg.Store))
			for _, collection := range docstore.Collections {
				if n := len(res[collection]); n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d added\n", collection, n)
				}
			}
			return err
		},
	}

	admin.AddCommand(list, add, update, del, seed)
	return admin
}

func adminList(ctx context.Context, client *docstore.Client, w io.Writer, collection, search string) error {
	records, err := client.List(ctx, collection)
	if err != nil {
		return err
	}
	records = docstore.Search(records, search)
	if len(records) == 0 {
		fmt.Fprintf(w, "no %s found\n", collection)
		return nil
	}

	fields := docstore.Fields(records)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t"+strings.ToUpper(strings.Join(fields, "\t")))
	for _, id := range docstore.SortedIDs(records) {
		row := []string{id}
		for _, f := range fields {
			row = append(row, formatValue(records[id][f]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// parseFields turns key=value arguments into a record. Values that parse as
// JSON (numbers, booleans, arrays, objects) keep their type; anything else
// is a string.
func parseFields(args []string) (docstore.Record, error) {
	rec := docstore.Record{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, oops.In("admin").With("argument", arg).Errorf("expected key=value, got %q", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil || v == nil {
			v = value
		}
		rec[key] = v
	}
	return rec, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
