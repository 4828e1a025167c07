package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/Strata/internal/monitor"
	"github.com/turtacn/Strata/internal/orchestrator"
	"github.com/turtacn/Strata/internal/persist"
	"github.com/turtacn/Strata/internal/relay"
	"github.com/turtacn/Strata/pkg/consts"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/operator"
	"github.com/turtacn/Strata/pkg/protocol"
	"github.com/turtacn/Strata/pkg/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the configured tree and run it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := protocol.Load(cfgFile)
		if err != nil {
			return err
		}

		logger.InitLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
		addr := cfg.Observability.MetricsPort
		if addr == "" {
			addr = consts.DefaultMetricsPort
		}
		monitor.InitMetrics(addr)

		logger.Log.Info("Booting Strata engine...", "root", cfg.Tree.Name)
		engine, err := orchestrator.NewEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		st, err := engine.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Tree.Name, st)
		return nil
	},
}

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "List the state operators, including configured aliases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry(cmd)
		if err != nil {
			return err
		}
		for _, name := range reg.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var evalFamily string

var evalCmd = &cobra.Command{
	Use:   "eval OPERATOR STATE...",
	Short: "Fold states with an operator",
	Long: "Fold states with an operator. A state is NAME in the --family family,\n" +
		"or FAMILY:NAME, for example service:STARTED.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry(cmd)
		if err != nil {
			return err
		}
		op, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}

		states := make([]state.State, 0, len(args)-1)
		for _, arg := range args[1:] {
			family, name := evalFamily, arg
			if f, n, ok := strings.Cut(arg, ":"); ok {
				family, name = f, n
			}
			s, err := state.Parse(family, strings.ToUpper(name))
			if err != nil {
				return err
			}
			states = append(states, s)
		}

		result, err := op.Evaluate(states...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Show the state a node comes back with after a restart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := protocol.Load(cfgFile)
		if err != nil {
			return err
		}
		reg, err := operator.NewRegistry(cfg.Operators.Aliases)
		if err != nil {
			return err
		}
		store, err := persist.Open(cfg.Persistence.Driver, cfg.Persistence.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		b := &orchestrator.Builder{Registry: reg, DefaultOperator: cfg.Operators.Default, Store: store}
		root, err := b.Build(cmd.Context(), cfg.Tree)
		if err != nil {
			return err
		}
		n, ok := orchestrator.Find(root, args[0])
		if !ok {
			return fmt.Errorf("no node named %q", args[0])
		}
		printEvent(cmd.OutOrStdout(), n.Name(), n.LastStateEvent())
		return nil
	},
}

var watchSocket string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the root state of a running tree as it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sub := relay.NewSubscriber(watchSocket, "watch")
		out := cmd.OutOrStdout()
		sub.AddStateListener(state.NewListener(func(ev state.Event) {
			printEvent(out, "remote", ev)
		}))
		return sub.Run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "strata %s\n", Version)
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalFamily, "family", consts.FamilyJob, "family of states given without a prefix")
	watchCmd.Flags().StringVar(&watchSocket, "socket", consts.DefaultSocketPath, "relay socket path")
}

// registry uses the aliases of the config file when one was given.
func registry(cmd *cobra.Command) (*operator.Registry, error) {
	if !cmd.Flags().Changed("config") {
		return operator.NewRegistry(nil)
	}
	cfg, err := protocol.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return operator.NewRegistry(cfg.Operators.Aliases)
}

func printEvent(w io.Writer, name string, ev state.Event) {
	line := fmt.Sprintf("%s %s %s", name, ev.State(), ev.Time().Format(time.RFC3339))
	if cause := ev.Cause(); cause != nil {
		line += " cause=" + cause.Error()
	}
	fmt.Fprintln(w, line)
}

// Personal.AI order the ending
