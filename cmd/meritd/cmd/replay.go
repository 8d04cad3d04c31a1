package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fieldworks/meritd/internal/bootstrap"
	"github.com/fieldworks/meritd/internal/core/config"
	"github.com/fieldworks/meritd/internal/core/db"
	"github.com/fieldworks/meritd/internal/ingest"
	"github.com/fieldworks/meritd/internal/judge"
	"github.com/fieldworks/meritd/internal/ledger"
	"github.com/fieldworks/meritd/internal/registry"
	"github.com/fieldworks/meritd/internal/rules"
	"github.com/fieldworks/meritd/internal/types"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Seed subjects and rules, then ingest all bootstrap visits",
	Long: `Replay loads the bootstrap document and the rule definitions, runs every
visit through the ingestion pipeline, and prints the final balance per
subject. With --db-url the durable store backs the run; otherwise state
stays in memory.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("data-file", "", "bootstrap seed document (overrides config)")
	replayCmd.Flags().String("rules-file", "", "rule definitions document (overrides config)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("data-file") {
		cfg.DataFile, _ = cmd.Flags().GetString("data-file")
	}
	if cmd.Flags().Changed("rules-file") {
		cfg.RulesFile, _ = cmd.Flags().GetString("rules-file")
	}

	seed, err := bootstrap.Load(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("failed to load seed document: %w", err)
	}
	logger.Info().
		Int("subjects", len(seed.Subjects)).
		Int("events", len(seed.Events)).
		Str("file", cfg.DataFile).
		Msg("bootstrap document loaded")

	payloads, err := loadRulePayloads(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	var oracle judge.Judge
	if cfg.JudgeEndpoint != "" {
		oracle = judge.NewClient(cfg.JudgeEndpoint, config.JudgeAPIKey(), cfg.JudgeModel, cfg.JudgeTimeout)
	} else {
		// Deterministic offline replay: stub verdicts from text markers
		oracle = &judge.Stub{Markers: []string{"helpful", "detailed"}}
		logger.Warn().Msg("no judge endpoint configured, using offline stub")
	}
	evaluator := rules.NewEvaluator(oracle)

	var (
		source  ingest.RuleSource
		books   ingest.Ledger
		durable *db.Store
	)
	if dbURL != "" {
		database, err := db.Open(dbURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		if err := checkMigrated(database); err != nil {
			return err
		}
		durable, err = db.NewStore(database)
		if err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}
		for _, s := range seed.Subjects {
			if err := durable.UpsertSubject(ctx, s); err != nil {
				return err
			}
		}
		if err := seedDurableRules(ctx, durable, payloads, logger); err != nil {
			return err
		}
		source, books = durable, durable
	} else {
		reg := registry.New()
		led := ledger.New()
		for _, s := range seed.Subjects {
			led.AddSubject(s)
		}
		seedRules(ctx, reg, payloads, logger)
		source, books = reg, led
	}

	pipeline := ingest.New(source, books, evaluator, logger)

	for i := range seed.Events {
		event := &seed.Events[i]
		if durable != nil {
			if err := durable.RecordEvent(ctx, event); err != nil {
				logger.Warn().Err(err).Str("event_id", string(event.ID)).Msg("event audit record failed")
			}
		}
		result, err := pipeline.Ingest(ctx, event)
		if err != nil {
			logger.Error().
				Err(err).
				Str("event_id", string(event.ID)).
				Msg("event rejected")
			continue
		}
		logger.Info().
			Str("event_id", string(event.ID)).
			Int("awarded", len(result.AwardedRuleIDs)).
			Int("failed", len(result.FailedRuleIDs)).
			Msg("event ingested")
	}

	for _, subject := range seed.Subjects {
		final, err := books.GetSubject(ctx, subject.ID)
		if err != nil {
			continue
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%d points\n", final.ID, final.Name, final.PointBalance)
	}

	return nil
}

type rulePayload struct {
	Name      string          `json:"name"`
	EventType string          `json:"eventType"`
	Condition json.RawMessage `json:"condition"`
	Points    int             `json:"points"`
}

// loadRulePayloads reads a JSON array of rule payloads.
func loadRulePayloads(path string) ([]rulePayload, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payloads []rulePayload
	if err := json.Unmarshal(content, &payloads); err != nil {
		return nil, err
	}
	return payloads, nil
}

// ruleCreator is the write surface shared by the in-memory registry and
// the durable store.
type ruleCreator interface {
	Create(ctx context.Context, name, eventType string, cond types.Condition, points int) (types.Rule, error)
}

// seedDurableRules seeds the rule payloads into a durable store unless the
// database already holds rules from an earlier run. Re-seeding would mint
// fresh rule ids, and the (rule, event) dedup cannot recognize a re-created
// rule, so a second replay against the same database would award every
// event again.
func seedDurableRules(ctx context.Context, store *db.Store, payloads []rulePayload, logger zerolog.Logger) error {
	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	if len(existing) > 0 {
		logger.Info().
			Int("rules", len(existing)).
			Msg("rules already present, skipping rule seeding")
		return nil
	}
	seedRules(ctx, store, payloads, logger)
	return nil
}

// seedRules creates each payload rule; a bad payload is logged and skipped
// so one malformed rule does not sink the replay.
func seedRules(ctx context.Context, store ruleCreator, payloads []rulePayload, logger zerolog.Logger) {
	for _, p := range payloads {
		eventType := p.EventType
		if eventType == "" {
			eventType = types.EventTypeVisit
		}
		cond, err := types.DecodeCondition(p.Condition)
		if err != nil {
			logger.Warn().Err(err).Str("rule", p.Name).Msg("rule condition rejected")
			continue
		}
		rule, err := store.Create(ctx, p.Name, eventType, cond, p.Points)
		if err != nil {
			logger.Warn().Err(err).Str("rule", p.Name).Msg("rule rejected")
			continue
		}
		logger.Info().
			Str("rule_id", string(rule.ID)).
			Str("rule", rule.Name).
			Int("points", rule.Points).
			Msg("rule created")
	}
}

// checkMigrated verifies the initial schema has been applied.
func checkMigrated(database *sqlx.DB) error {
	var migrationID string
	checkQuery := `SELECT migration_id FROM migrations WHERE migration_id = '001_initial_schema.sql'`
	err := database.Get(&migrationID, database.Rebind(checkQuery))
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("migration 001_initial_schema not applied - run 'meritd migrate' first")
		}
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	return nil
}
