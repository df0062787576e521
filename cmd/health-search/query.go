// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/health-search/internal/history"
	"github.com/pdiddy/health-search/internal/research"
)

var queryCmd = &cobra.Command{
	Use:   "query [text...]",
	Short: "Run one health query and print the research document",
	Long: `Query runs a single question through the same pipeline as the HTTP
service and prints the resulting document as JSON, YAML or a table.
When the sqlite history backend is configured the query is recorded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, keys, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	orch := research.New(cfg.Orchestrator, keys, logger)
	out, err := orch.Search(context.Background(), strings.Join(args, " "))
	if err != nil {
		if rerr, ok := research.AsError(err); ok {
			return errors.New(rerr.Message)
		}
		return err
	}

	fmt.Fprintf(os.Stderr, "stage: %s\n", out.Stage)
	if err := research.Write(os.Stdout, out.Document, format); err != nil {
		return err
	}

	rec, err := history.Open(cfg.History)
	if err != nil || rec == nil {
		return err
	}
	defer rec.Close()
	err = rec.Record(context.Background(), history.Entry{
		Query:       out.Query,
		Stage:       string(out.Stage),
		ResultCount: len(out.Document.Results),
	})
	if err != nil && !errors.Is(err, history.ErrAnonymous) {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

func init() {
	queryCmd.Flags().String("format", research.FormatJSON, "output format: json, yaml or table")
	rootCmd.AddCommand(queryCmd)
}
