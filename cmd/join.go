package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codejoiner/pkg/combine"
	"codejoiner/pkg/session"
	"codejoiner/pkg/sink"
	"codejoiner/pkg/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type joinFlags struct {
	output    string
	toStdout  bool
	copy      bool
	preview   bool
	watch     bool
	ignore    []string
	maxSizeKB int
	workers   int
}

var joinOpts joinFlags

var joinCmd = &cobra.Command{
	Use:   "join [paths...]",
	Short: "Combine HTML, CSS and JavaScript files into one HTML file",
	Long: `Combine one .html, one .css and one .js file into a single HTML document.
Paths may be files or directories; directories are searched recursively, honoring
.joinignore files. When several files of the same kind are found, the last one wins.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runJoin,
}

func init() {
	f := joinCmd.Flags()
	f.StringVarP(&joinOpts.output, "output", "o", "", "Output file (default <output_dir>/index.html)")
	f.BoolVar(&joinOpts.toStdout, "stdout", false, "Print the combined document instead of writing a file")
	f.BoolVar(&joinOpts.copy, "copy", false, "Copy the combined document to the clipboard")
	f.BoolVar(&joinOpts.preview, "preview", false, "Serve the combined document in a sandboxed local preview until interrupted")
	f.BoolVar(&joinOpts.watch, "watch", false, "Re-join whenever a source file changes")
	f.StringSliceVarP(&joinOpts.ignore, "ignore", "i", nil, "Additional ignore patterns")
	f.IntVar(&joinOpts.maxSizeKB, "max-size", 0, "Skip files larger than this many KB (default from config)")
	f.IntVar(&joinOpts.workers, "workers", 0, "Number of concurrent file readers (default from config)")
	RootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := sourceOptions()
	opts.IgnorePatterns = append(opts.IgnorePatterns, joinOpts.ignore...)
	if cmd.Flags().Changed("max-size") {
		opts.MaxFileSizeKB = joinOpts.maxSizeKB
	}
	if cmd.Flags().Changed("workers") {
		opts.MaxWorkers = joinOpts.workers
	}

	dir, name := cfg.Join.OutputDir, cfg.Join.OutputName
	if joinOpts.output != "" {
		dir, name = filepath.Dir(joinOpts.output), filepath.Base(joinOpts.output)
	}

	var previewer *sink.Previewer
	sessOpts := []session.Option{session.WithSourceOptions(opts), session.WithOutputName(name)}
	if joinOpts.preview {
		previewer = sink.NewPreviewer(cfg.Preview.Addr, logger)
		defer previewer.Close()
		sessOpts = append(sessOpts, session.WithPreviewer(previewer))
	}
	sess := newCLISession(sessOpts...)

	loaded, err := sess.LoadFiles(ctx, args)
	if err != nil {
		return err
	}
	// Only the file that ended up in each slot is watched.
	occupant := map[combine.Kind]string{}
	for _, l := range loaded {
		occupant[l.Kind] = l.Path
	}
	var watched []string
	for _, kind := range combine.Kinds {
		if p, ok := occupant[kind]; ok {
			watched = append(watched, p)
		}
	}

	publish := func(doc string) error {
		if joinOpts.toStdout {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), doc); err != nil {
				return err
			}
		} else if _, err := sess.Download(dir); err != nil {
			return err
		}
		if joinOpts.copy {
			if err := sess.Copy(); err != nil {
				return err
			}
		}
		if joinOpts.preview {
			url, err := sess.Preview()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Preview:", url)
		}
		return nil
	}

	doc, err := sess.Join()
	if err != nil {
		return err
	}
	if err := publish(doc); err != nil {
		return err
	}

	switch {
	case joinOpts.watch:
		w, err := watch.New(sess, watched, publish, logger)
		if err != nil {
			return err
		}
		logger.Info("Watching sources", zap.Strings("files", watched))
		return w.Run(ctx)
	case joinOpts.preview:
		fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop the preview.")
		<-ctx.Done()
	}
	return ignoreInterrupt(ctx.Err())
}

// ignoreInterrupt treats a signal-driven shutdown as success.
func ignoreInterrupt(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
