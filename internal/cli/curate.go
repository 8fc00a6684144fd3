package cli

import (
	"context"
	"fmt"

	"github.com/chorus-insights/chorus/internal/dedup"
	"github.com/chorus-insights/chorus/internal/model"
	"github.com/chorus-insights/chorus/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	curateClient string
	curateNotes  string
	curateDB     string
	unfeature    bool
)

// curateCmd represents the curate command group
var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Review and decide pending theme mappings",
	Long: `Curate is the analyst workflow over machine-suggested theme mappings.

Approving a mapping folds its raw theme into the canonical aggregates;
denying keeps it on record but excludes it; editing re-opens a decided
mapping for another review pass. Every decision is appended to the mapping's
history and never overwritten.`,
}

var curateApproveCmd = &cobra.Command{
	Use:   "approve <mapping-id>",
	Short: "Approve a mapping and fold it into the canonical aggregates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args[0], model.DecisionApproved)
	},
}

var curateDenyCmd = &cobra.Command{
	Use:   "deny <mapping-id>",
	Short: "Deny a mapping, excluding it from aggregates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args[0], model.DecisionDenied)
	},
}

var curateEditCmd = &cobra.Command{
	Use:   "edit <mapping-id>",
	Short: "Mark a mapping edited, re-opening it for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args[0], model.DecisionEdited)
	},
}

var curateFeatureCmd = &cobra.Command{
	Use:   "feature <quote-id>",
	Short: "Flag a quote as featured evidence (or unflag with --remove)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeature,
}

var curatePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List mappings awaiting a decision",
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(curateCmd)
	curateCmd.AddCommand(curateApproveCmd, curateDenyCmd, curateEditCmd, curateFeatureCmd, curatePendingCmd)

	curateCmd.PersistentFlags().StringVar(&curateClient, "client", "", "client identifier (required)")
	curateCmd.PersistentFlags().StringVar(&curateNotes, "notes", "", "analyst notes recorded with the decision")
	curateCmd.PersistentFlags().StringVar(&curateDB, "db", "", "database path (default from config)")
	curateFeatureCmd.Flags().BoolVar(&unfeature, "remove", false, "remove the featured flag instead of setting it")

	_ = curateCmd.MarkPersistentFlagRequired("client")
}

// openCuration loads config and opens the store and curator shared by all
// curate subcommands
func openCuration() (*store.SQLiteStore, *dedup.Curator, model.RunContext, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, model.RunContext{}, nil, err
	}
	if curateDB != "" {
		cfg.Store.DBPath = curateDB
	}

	log, err := newLogger()
	if err != nil {
		return nil, nil, model.RunContext{}, nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, model.RunContext{}, nil, fmt.Errorf("open store: %w", err)
	}

	rc := model.RunContext{ClientID: curateClient, Config: cfg}
	return st, dedup.NewCurator(st, log), rc, log, nil
}

func decide(mappingID string, decision model.AnalystDecision) error {
	st, curator, rc, log, err := openCuration()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	defer func() { _ = log.Sync() }()

	mapping, err := curator.Decide(context.Background(), rc, mappingID, decision, curateNotes)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Mapping %s is now %s (raw %s -> canonical %s)\n",
		mapping.MappingID, mapping.AnalystDecision, mapping.RawThemeID, mapping.CanonicalID)
	return nil
}

func runFeature(cmd *cobra.Command, args []string) error {
	st, _, rc, log, err := openCuration()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	quoteID := args[0]

	cur, err := st.GetQuoteCuration(ctx, rc.ClientID, quoteID)
	if err != nil {
		return fmt.Errorf("load quote curation: %w", err)
	}
	cur.Featured = !unfeature

	if err := st.SetQuoteCuration(ctx, *cur); err != nil {
		return fmt.Errorf("save quote curation: %w", err)
	}

	if cur.Featured {
		fmt.Printf("✓ Quote %s flagged as featured\n", quoteID)
	} else {
		fmt.Printf("✓ Quote %s no longer featured\n", quoteID)
	}
	return nil
}

func runPending(cmd *cobra.Command, args []string) error {
	st, _, rc, log, err := openCuration()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	defer func() { _ = log.Sync() }()

	mappings, err := st.ListPendingMappings(context.Background(), rc.ClientID)
	if err != nil {
		return fmt.Errorf("list pending mappings: %w", err)
	}

	if len(mappings) == 0 {
		fmt.Println("No mappings awaiting review.")
		return nil
	}

	fmt.Printf("%d mapping(s) awaiting review:\n\n", len(mappings))
	for _, m := range mappings {
		fmt.Printf("  %s  [%s, %.2f]  raw %s -> canonical %s\n",
			m.MappingID, m.RelationshipType, m.ConfidenceScore, m.RawThemeID, m.CanonicalID)
		if m.MergeRationale != "" {
			fmt.Printf("      %s\n", m.MergeRationale)
		}
	}
	return nil
}
