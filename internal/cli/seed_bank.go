package cli

import (
	"log"

	pginfra "challenge-arena/internal/infra/postgres"
	"challenge-arena/internal/questionbank"
	"github.com/spf13/cobra"
)

// NewSeedBankCmd writes a question bank into Postgres, from bank.path when
// set and the built-in catalogue otherwise.
func NewSeedBankCmd(flags *Flags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "seed-bank",
		Short: "Store a question bank in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			bank := questionbank.Default()
			if cfg.Bank.Path != "" {
				if bank, err = questionbank.LoadFile(cfg.Bank.Path); err != nil {
					return err
				}
			}
			if name == "" {
				name = cfg.Bank.Name
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := pginfra.SaveBank(cmd.Context(), db, name, bank); err != nil {
				return err
			}
			log.Printf("bank %q stored: %d topics, %d riddles, %d creative prompts",
				name, len(bank.Topics), len(bank.Riddles), len(bank.Creative))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "bank name, defaults to bank.name")
	return cmd
}
