package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clippyboard/pkg/clipboard"
	"clippyboard/pkg/config"
	"clippyboard/pkg/errors"
	"clippyboard/pkg/logger"

	"github.com/spf13/cobra"
)

const unknownValue = "unknown"

var (
	Version   string
	BuildTime string
	GitCommit string
)

var (
	socketFlag  string
	configFlag  string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "clippyboard-daemon",
	Short: "Clipboard-history daemon for ext-data-control-v1 compositors",
	Long: `clippyboard-daemon observes every clipboard selection produced by any
client of the compositor, retains it in a byte-bounded in-memory history,
and exposes that history over a local socket so a picker UI and a clear
command can read entries and re-paste a chosen one back into the clipboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevelFlag
		if !cmd.Flags().Changed("log-level") {
			if envLevel := os.Getenv("CLIPPYBOARD_LOG_LEVEL"); envLevel != "" {
				level = envLevel
			}
		}
		logger.SetLevel(level)
		return nil
	},
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		ver := Version
		if ver == "" {
			ver = "dev"
		}
		bt := BuildTime
		if bt == "" {
			bt = unknownValue
		}
		gc := GitCommit
		if gc == "" {
			gc = unknownValue
		}

		fmt.Printf("clippyboard-daemon version %s\n", ver)
		fmt.Printf("Built: %s\n", bt)
		fmt.Printf("Git commit: %s\n", gc)
	},
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath := configFlag
	if configPath == "" {
		path, err := config.Path()
		if err != nil {
			return errors.Fatal("resolving the config file path", err)
		}
		configPath = path
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if socketFlag != "" {
		cfg.SocketPath = socketFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return clipboard.Run(ctx, cfg)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		errors.Handle(err)
	}
}

func init() {
	RegisterCommands(rootCmd)

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error, fatal, panic)")
	rootCmd.Flags().StringVar(&socketFlag, "socket", "", "Override the local socket path (defaults to $CLIPPYBOARD_SOCKET or $XDG_RUNTIME_DIR/clippyboard.sock)")
	rootCmd.Flags().StringVar(&configFlag, "config", "", "Path to the YAML config file (defaults to $XDG_CONFIG_HOME/clippyboard/config.yaml)")
}
