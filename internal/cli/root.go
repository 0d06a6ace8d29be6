// Package cli implements nidahctl, the operator command line for running
// matching and working through the approval queue without the HTTP API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nidahp/portal-api/internal/app"
	"github.com/nidahp/portal-api/internal/config"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/pkg/logger"
)

const (
	outputTable = "table"
	outputJSON  = "json"

	// commands annotated with noDatabase run without opening a connection
	noDatabase = "no-database"
)

type cliApp struct {
	v   *viper.Viper
	cfg *config.Config
	log *logger.Logger
	db  *sqlx.DB
	svc *app.Services
}

// Execute runs nidahctl with the process arguments. Interrupts cancel the
// command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds a fresh command tree. Each call has its own state so
// tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	a := &cliApp{v: viper.New()}

	root := &cobra.Command{
		Use:          "nidahctl",
		Short:        "Operate the NiDAH-P matching and approval engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	flags.String("db-driver", "", "database driver: postgres or sqlite")
	flags.String("db-dsn", "", "database connection string")
	flags.StringP("output", "o", outputTable, "output format: table or json")
	flags.String("log-level", "", "log level override")
	for _, name := range []string{"config", "db-driver", "db-dsn", "output", "log-level"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		a.migrateCmd(),
		a.matchCmd(),
		a.pendingCmd(),
		a.decideCmd("approve-assignment", "<professional-id>", "Approve the pending assignment of a professional", a.approveAssignment),
		a.decideCmd("reject-assignment", "<professional-id>", "Reject the pending assignment of a professional", a.rejectAssignment),
		a.decideCmd("approve-interest", "<interest-id>", "Approve a pending interest", a.approveInterest),
		a.decideCmd("reject-interest", "<interest-id>", "Reject a pending interest", a.rejectInterest),
		a.reclassifyCmd(),
		a.tokenCmd(),
		a.watchCmd(),
	)

	// PostRun hooks are skipped when RunE fails, so the connection is
	// released here instead.
	for _, c := range root.Commands() {
		if c.RunE == nil {
			continue
		}
		runE := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.close()
			return runE(cmd, args)
		}
	}
	return root
}

func (a *cliApp) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

func (a *cliApp) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.v.GetString("config"))
	if err != nil {
		return err
	}
	if d := a.v.GetString("db-driver"); d != "" {
		cfg.Database.Driver = d
	}
	if dsn := a.v.GetString("db-dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if lvl := a.v.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch a.output() {
	case outputTable, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q", a.output())
	}

	a.cfg = cfg
	a.log = logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.Kitchen,
		Output:     cmd.ErrOrStderr(),
		Console:    true,
	})

	if _, skip := cmd.Annotations[noDatabase]; skip {
		return nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	a.db = db
	a.svc = app.NewServices(db, app.Options{
		IdentityCacheTTL: cfg.Identity.CacheTTL,
		Logger:           a.log,
	})
	return nil
}

func (a *cliApp) output() string {
	return a.v.GetString("output")
}

// printJSON writes v when -o json is set and reports whether it did.
func (a *cliApp) printJSON(cmd *cobra.Command, v interface{}) (bool, error) {
	if a.output() != outputJSON {
		return false, nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
