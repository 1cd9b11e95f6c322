package cmd

import (
	"fmt"

	"codejoiner/pkg/config"
	"codejoiner/pkg/logging"
	"codejoiner/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "codejoiner",
	Short: "codejoiner combines an HTML, a CSS and a JavaScript file into one page",
	Long: `codejoiner merges one HTML document, one stylesheet and one script into a single
self-contained HTML file, with the CSS inlined in the head and the JavaScript at the end
of the body. Sources can come from local files or a remote folder, and the result can be
written, copied, previewed in a sandbox, or saved back to the remote folder.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			loaded.Logging.Debug = true
		}
		l, err := logging.Setup(loaded.Logging, version.AppName, version.Version)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, logger = loaded, l
		logger.Debug("Configuration loaded", zap.String("config", cfgFile))
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "Path to the YAML config file")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable development logging")
}

// Execute runs the root command and returns the first error.
func Execute() error {
	return RootCmd.Execute()
}
