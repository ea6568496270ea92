package cli

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flags holds the persistent command-line overrides. Each one can also be
// set through an ARENA_* environment variable.
type Flags struct {
	ConfigPath  string
	Port        string
	Verbose     bool
	RedisAddr   string
	PostgresURL string
	JWTSecret   string
	BankPath    string
}

// Execute runs the CLI.
func Execute() error {
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &Flags{}
	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "challenge-arena",
		Short:         "Real-time multiplayer challenge rooms over WebSocket",
		SilenceUsage: true,
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&flags.ConfigPath, "config", "config/config.yaml", "path to YAML config (env: ARENA_CONFIG)")
	fs.StringVar(&flags.Port, "port", "", "port to listen on, overrides server.port (env: ARENA_PORT)")
	fs.BoolVarP(&flags.Verbose, "verbose", "v", false, "log every game event (env: ARENA_VERBOSE)")
	fs.StringVar(&flags.RedisAddr, "redis-addr", "", "redis address, overrides redis.addr (env: ARENA_REDIS_ADDR)")
	fs.StringVar(&flags.PostgresURL, "postgres-url", "", "postgres DSN, overrides postgres.url (env: ARENA_POSTGRES_URL)")
	fs.StringVar(&flags.JWTSecret, "jwt-secret", "", "HS256 secret for player tokens (env: ARENA_JWT_SECRET)")
	fs.StringVar(&flags.BankPath, "bank-path", "", "question bank file, overrides bank.path (env: ARENA_BANK_PATH)")

	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
			}
		})
	}

	cmd.AddCommand(NewStartCmd(flags))
	cmd.AddCommand(NewMigrateCmd(flags))
	cmd.AddCommand(NewSeedBankCmd(flags))
	return cmd
}
