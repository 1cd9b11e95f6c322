package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"codejoiner/pkg/remote"
	"codejoiner/pkg/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface and the remote storage API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		sc := cfg.Serve
		if flags.Changed("addr") {
			sc.Addr, _ = flags.GetString("addr")
		}
		if flags.Changed("db") {
			sc.DatabasePath, _ = flags.GetString("db")
		}
		if flags.Changed("access-key") {
			sc.AccessKey, _ = flags.GetString("access-key")
		}

		var storage remote.Storage
		if sc.AccessKey != "" {
			store, err := remote.OpenSQLite(sc.DatabasePath, logger)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer store.Close()
			storage = store
		} else {
			logger.Warn("No access key configured, the storage API is disabled")
		}

		srv, err := server.New(server.Config{
			MaxUploadMB:  sc.MaxUploadMB,
			PreviewLimit: sc.PreviewLimit,
			AccessKey:    sc.AccessKey,
		}, storage, logger)
		if err != nil {
			return err
		}

		ln, err := net.Listen("tcp", sc.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", sc.Addr, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s\n", ln.Addr())
		logger.Debug("Serve configuration", zap.String("db", sc.DatabasePath), zap.Int("maxUploadMB", sc.MaxUploadMB))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx, ln)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().String("db", "", "SQLite database for the storage API")
	serveCmd.Flags().String("access-key", "", "Access key clients exchange for a token")
	RootCmd.AddCommand(serveCmd)
}
