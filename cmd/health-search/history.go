// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/health-search/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the local search history (list, export)",
	Long: `History reads the SQLite search history written by serve and query when
history.backend is sqlite. The Supabase backend is read by the web client
and is not available here.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent searches",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	return formatHistoryList(os.Stdout, entries, jsonOutput)
}

func formatHistoryList(w io.Writer, entries []history.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-9s  %-7s  %s\n", "Time", "Stage", "Results", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range entries {
		q := e.Query
		if r := []rune(q); len(r) > 40 {
			q = string(r[:37]) + "..."
		}
		fmt.Fprintf(w, "%-20s  %-9s  %-7d  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Stage, e.ResultCount, q)
	}
	fmt.Fprintf(w, "\n%d searches\n", len(entries))
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full search history to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if output == "" || output == "-" {
		return store.Export(context.Background(), os.Stdout, format)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := store.Export(context.Background(), f, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	return nil
}

// --- shared helpers ---

func openHistory(cmd *cobra.Command) (*history.SQLiteStore, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("history.sqlite_path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no history database at %s: %w", path, err)
	}
	return history.NewSQLiteStore(path)
}

func init() {
	historyCmd.PersistentFlags().String("db", "", "SQLite history database (default: history.sqlite_path)")

	historyListCmd.Flags().Int("limit", 20, "maximum entries to list")
	historyListCmd.Flags().Bool("json", false, "output entries as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
