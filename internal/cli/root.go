// Package cli implements deskctl, a command line front end that edits a
// ticket through the workspace synchronizer.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/apiclient"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

// Config is the resolved deskctl configuration. Flags win over DESK_*
// environment variables.
type Config struct {
	APIURL  string
	Token   string
	Timeout time.Duration
	Mode    workspace.Mode
	JSON    bool
	Verbose bool
}

type app struct {
	v *viper.Viper
}

// NewRootCommand builds the deskctl command tree.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "deskctl",
		Short: "Edit help-desk tickets from the command line",
		Long: `deskctl opens a ticket workspace against the help-desk API, applies one
change and prints the resulting ticket. Configure it with --api-url and
--token or the DESK_API_URL and DESK_TOKEN environment variables.`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.String("api-url", "http://localhost:8080", "help-desk API base URL")
	flags.String("token", "", "access token (see 'deskctl login')")
	flags.Duration("timeout", 15*time.Second, "per-request timeout")
	flags.String("mode", "partial", "scalar update mode: partial (PATCH) or full (PUT)")
	flags.Bool("json", false, "print JSON instead of text")
	flags.BoolP("verbose", "v", false, "log API requests to stderr")
	_ = v.BindPFlags(flags)

	a := &app{v: v}
	root.AddCommand(
		a.loginCmd(),
		a.showCmd(),
		a.statusCmd(),
		a.priorityCmd(),
		a.branchCmd(),
		a.dueCmd(),
		a.assignCmd(),
		a.unassignCmd(),
		a.notifyCmd(),
		a.labelCmd(),
		a.noteCmd(),
		a.verifyCmd(),
		a.invoiceCmd(),
	)
	return root
}

func (a *app) config() (Config, error) {
	cfg := Config{
		APIURL:  a.v.GetString("api-url"),
		Token:   a.v.GetString("token"),
		Timeout: a.v.GetDuration("timeout"),
		JSON:    a.v.GetBool("json"),
		Verbose: a.v.GetBool("verbose"),
	}
	if cfg.APIURL == "" {
		return cfg, fmt.Errorf("api url required: set --api-url or DESK_API_URL")
	}
	switch strings.ToLower(a.v.GetString("mode")) {
	case "", "partial":
		cfg.Mode = workspace.ModePartial
	case "full":
		cfg.Mode = workspace.ModeFullObject
	default:
		return cfg, fmt.Errorf("unknown mode %q: use partial or full", a.v.GetString("mode"))
	}
	return cfg, nil
}

func (cfg Config) logger() *zap.Logger {
	if !cfg.Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (cfg Config) client(logger *zap.Logger) *apiclient.Client {
	return apiclient.New(cfg.APIURL,
		apiclient.WithToken(cfg.Token),
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithLogger(logger))
}

// run opens the ticket named by ticketArg, applies fn and prints the
// resulting snapshot.
func (a *app) run(cmd *cobra.Command, ticketArg string, fn func(context.Context, *workspace.Workspace) error) error {
	return a.withWorkspace(cmd, ticketArg, func(ctx context.Context, cfg Config, ws *workspace.Workspace) error {
		if fn != nil {
			if err := fn(ctx, ws); err != nil {
				return err
			}
		}
		return printSnapshot(cmd.OutOrStdout(), ws.Snapshot(), cfg.JSON)
	})
}

// withWorkspace opens the ticket named by ticketArg for the lifetime of fn.
func (a *app) withWorkspace(cmd *cobra.Command, ticketArg string, fn func(context.Context, Config, *workspace.Workspace) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	ticketID, err := parseID("ticket", ticketArg)
	if err != nil {
		return err
	}
	logger := cfg.logger()
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := workspace.Open(ctx, cfg.client(logger), ticketID,
		workspace.WithMode(cfg.Mode),
		workspace.WithLogger(logger))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, cfg, ws)
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", name, raw)
	}
	return id, nil
}
