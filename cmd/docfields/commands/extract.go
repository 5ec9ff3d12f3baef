package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/foxxcyber/docfields/internal/models"
	"github.com/foxxcyber/docfields/internal/pipeline"
	"github.com/foxxcyber/docfields/internal/services"
)

var (
	extractSchemaPath string
	extractStrategy   string
	extractOutput     string
	extractTimeout    time.Duration
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract schema fields from a local document",
	Long: `Run recognition and field extraction on a local image or PDF without the
HTTP server. The schema file is YAML or JSON mapping field keys to
{name, description, type}.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractSchemaPath, "schema", "s", "", "schema file (required)")
	extractCmd.Flags().StringVar(&extractStrategy, "strategy", string(services.StrategyPattern), "extraction strategy: "+strategyNames())
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "json", "output format: json or text")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 10*time.Minute, "overall time limit")
	extractCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if _, err := services.ParseStrategy(extractStrategy); err != nil {
		return err
	}
	if extractOutput != "json" && extractOutput != "text" {
		return fmt.Errorf("unknown output format %q", extractOutput)
	}

	schema, err := models.ReadFieldSchema(extractSchemaPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("cannot read document: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), extractTimeout)
	defer cancel()

	p, err := pipeline.Build(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	envelope, err := p.Orchestrator.Run(ctx, services.RunRequest{
		FileID:       uuid.NewString(),
		Strategy:     extractStrategy,
		DocumentPath: args[0],
		Schema:       schema,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractOutput == "text" {
		for _, key := range schema.Keys() {
			value := envelope.Result[key]
			if value == nil {
				value = "-"
			}
			fmt.Fprintf(out, "%s\t%v\n", key, value)
		}
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(envelope)
}

func strategyNames() string {
	names := make([]string, len(services.Strategies))
	for i, s := range services.Strategies {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
