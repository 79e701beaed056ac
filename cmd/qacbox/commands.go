package main

import (
	"github.com/bastiangx/qacbox/internal/logger"
	"github.com/bastiangx/qacbox/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	configFlag string
	dataFlag   string
	debugMode  bool
	noFilter   bool
	listenFlag string

	cfg        *config.Config
	configPath string

	rootCmd = &cobra.Command{
		Use:           AppName,
		Short:         "Entity aware question composer with completions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(debugMode)
			var err error
			cfg, configPath, err = config.LoadConfigWithPriority(configFlag)
			if err != nil {
				log.Warnf("Using default config: %v", err)
				cfg = config.DefaultConfig()
			}
			log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve completions and entity info over HTTP",
		RunE:  runServe,
	}

	ipcCmd = &cobra.Command{
		Use:   "ipc",
		Short: "Serve completions as msgpack over stdin/stdout",
		RunE:  runIPC,
	}

	composeCmd = &cobra.Command{
		Use:   "compose [question]",
		Short: "Compose a question in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompose,
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Drive the composer line by line (debugging)",
		RunE:  runQuery,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show current version",
		Run:   func(cmd *cobra.Command, args []string) { showVersion() },
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config.toml")
	rootCmd.PersistentFlags().StringVar(&dataFlag, "data", "data/", "Directory containing aliases and entities files")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")

	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "Listen address (default from config)")
	queryCmd.Flags().BoolVar(&noFilter, "no-filter", false, "Look up every input, numbers and repeats included")

	rootCmd.AddCommand(serveCmd, ipcCmd, composeCmd, queryCmd, versionCmd)
}
