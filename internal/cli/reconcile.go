package cli

import (
	"fmt"
	"log"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/config"
	"github.com/spf13/cobra"
)

// NewReconcileCmd recomputes every participant's total score from the
// ledger sum. Run it after a reported partial submission failure.
func NewReconcileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rewrite total scores from the score ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" && cfg.Redis.Addr == "" {
				return fmt.Errorf("reconcile needs a persistent store (postgres or redis)")
			}

			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.close()

			submissions := app.NewSubmissionService(st.participants, st.scores)
			adjusted, err := submissions.RecomputeTotals(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("reconcile complete, %d participants adjusted", adjusted)
			return nil
		},
	}
}
