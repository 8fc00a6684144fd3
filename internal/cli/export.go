package cli

import (
	"context"
	"fmt"

	"github.com/chorus-insights/chorus/internal/export"
	"github.com/chorus-insights/chorus/internal/model"
	"github.com/chorus-insights/chorus/internal/store"
	"github.com/spf13/cobra"
)

var (
	exportClient string
	exportJSON   string
	exportMD     string
	exportDB     string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export approved themes with their curated evidence",
	Long: `Export renders the approved canonical themes for one client, each with
its analyst-curated supporting quotes and full attribution. Pending and
denied mappings never surface, and neither do analyst-denied quotes.

Example:
  chorus export --client acme --json themes.json --md themes.md`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportClient, "client", "", "client identifier (required)")
	exportCmd.Flags().StringVar(&exportJSON, "json", "", "output JSON path (optional)")
	exportCmd.Flags().StringVar(&exportMD, "md", "", "output Markdown path (optional)")
	exportCmd.Flags().StringVar(&exportDB, "db", "", "database path (default from config)")

	_ = exportCmd.MarkFlagRequired("client")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if exportDB != "" {
		cfg.Store.DBPath = exportDB
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	rc := model.RunContext{ClientID: exportClient, Config: cfg}
	exporter := export.NewExporter(st, log)

	report, err := exporter.Build(context.Background(), rc)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if exportJSON != "" {
		if err := export.RenderJSON(report, exportJSON); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", exportJSON)
		}
	}
	if exportMD != "" {
		if err := export.RenderMarkdown(report, exportMD); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", exportMD)
		}
	}

	export.RenderSummary(report)
	return nil
}
