package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codejoiner/pkg/remote"
	"codejoiner/pkg/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Load sources from, and save combined files to, remote storage",
	Long: `Remote storage is configured with remote.url (or CODEJOINER_REMOTE_URL):
an http(s) URL of a "codejoiner serve" instance, "sqlite:<file>" for a local
database, or a directory path.`,
}

var remoteSignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Check that the configured access key is accepted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, closer, err := openBackend(nil, logger)
		if err != nil {
			return err
		}
		defer closer()

		if err := backend.Auth.SignIn(cmd.Context()); err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Signed in to", cfg.Remote.URL)
		return nil
	},
}

var pullOutput string

var remotePullCmd = &cobra.Command{
	Use:   "pull FOLDER",
	Short: "Combine the .html, .css and .js files of a remote folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, closer, err := openBackend(remote.StaticPicker{Folder: args[0]}, logger)
		if err != nil {
			return err
		}
		defer closer()

		sess := newCLISession(session.WithRemote(backend))
		if _, err := sess.LoadRemote(ctx); err != nil {
			return neutralCancel(err)
		}
		doc, err := sess.Join()
		if err != nil {
			return err
		}
		if pullOutput == "-" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), doc)
			return err
		}
		dir := cfg.Join.OutputDir
		if pullOutput != "" {
			dir = pullOutput
		}
		_, err = sess.Download(dir)
		return err
	},
}

var remotePushCmd = &cobra.Command{
	Use:   "push FOLDER paths...",
	Short: "Combine local files and save the result into a remote folder",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, closer, err := openBackend(remote.StaticPicker{Folder: args[0]}, logger)
		if err != nil {
			return err
		}
		defer closer()

		sess := newCLISession(session.WithRemote(backend))
		if _, err := sess.LoadFiles(ctx, args[1:]); err != nil {
			return err
		}
		if _, err := sess.Join(); err != nil {
			return err
		}
		saved, err := sess.SaveRemote(ctx)
		if err != nil {
			return neutralCancel(err)
		}
		logger.Debug("Pushed combined file", zap.String("path", saved))
		return nil
	},
}

func init() {
	remotePullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", `Output directory, or "-" for stdout`)
	remoteCmd.AddCommand(remoteSignInCmd, remotePullCmd, remotePushCmd)
	RootCmd.AddCommand(remoteCmd)
}

// neutralCancel turns a user cancellation into a clean exit; the session has
// already reported it.
func neutralCancel(err error) error {
	if remote.IsCancelled(err) {
		return nil
	}
	return err
}
