package cmd

import (
	"fmt"
	"os"

	"codejoiner/internal/tui"
	"codejoiner/pkg/remote"
	"codejoiner/pkg/session"
	"codejoiner/pkg/sink"
	"codejoiner/pkg/status"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [paths...]",
	Short: "Join files interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The terminal belongs to the UI; logs only go to a configured file.
		l := logger
		if cfg.Logging.File == "" {
			l = zap.NewNop()
		}

		board := status.NewBoard()
		previewer := sink.NewPreviewer(cfg.Preview.Addr, l)
		defer previewer.Close()

		opts := []session.Option{
			session.WithSourceOptions(sourceOptions()),
			session.WithClipboard(sink.NewClipboard(os.Stderr, l)),
			session.WithPreviewer(previewer),
			session.WithOutputName(cfg.Join.OutputName),
		}

		var backend *remote.Backend
		if cfg.Remote.URL != "" {
			b, closer, err := openBackend(nil, l)
			if err != nil {
				return err
			}
			defer closer()
			backend = b
			opts = append(opts, session.WithRemote(backend))
		}

		sess := session.New(status.Multi{board, status.NewLogReporter(l)}, l, opts...)
		if len(args) > 0 {
			_, _ = sess.LoadFiles(cmd.Context(), args)
		}

		model := tui.New(tui.Config{
			Session:     sess,
			Board:       board,
			Remote:      backend,
			DownloadDir: cfg.Join.OutputDir,
		})
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(tuiCmd)
}
