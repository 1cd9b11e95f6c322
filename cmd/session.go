package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"codejoiner/pkg/remote"
	"codejoiner/pkg/session"
	"codejoiner/pkg/sink"
	"codejoiner/pkg/source"
	"codejoiner/pkg/status"
	"codejoiner/pkg/version"

	"go.uber.org/zap"
)

// sourceOptions maps the join configuration onto collection options.
func sourceOptions() source.Options {
	opts := source.DefaultOptions()
	opts.GlobalIgnoreFile = cfg.Join.GlobalIgnoreFile
	opts.IgnorePatterns = append(opts.IgnorePatterns, cfg.Join.Ignore...)
	opts.MaxFileSizeKB = cfg.Join.MaxFileSizeKB
	opts.MaxWorkers = cfg.Join.Workers
	opts.Verbose = cfg.Logging.Debug
	return opts
}

// openStorage picks a Storage for location: an http(s) URL is a codejoiner
// server, "sqlite:" a database file, anything else a local directory.
// The returned closer releases the storage.
func openStorage(location, accessKey string, l *zap.Logger) (remote.Authenticator, remote.Storage, func() error, error) {
	noop := func() error { return nil }
	switch {
	case location == "":
		return nil, nil, noop, errors.New("no remote configured, set remote.url or CODEJOINER_REMOTE_URL")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		client := remote.NewClient(location, accessKey,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.RemoteTimeout()}),
			remote.WithLogger(l),
			remote.WithUserAgent(version.Get().UserAgent()))
		return client, client, noop, nil
	case strings.HasPrefix(location, "sqlite:"):
		store, err := remote.OpenSQLite(strings.TrimPrefix(location, "sqlite:"), l)
		if err != nil {
			return nil, nil, noop, err
		}
		return remote.Open{}, store, store.Close, nil
	default:
		store, err := remote.NewDirStore(strings.TrimPrefix(location, "file://"), l)
		if err != nil {
			return nil, nil, noop, err
		}
		return remote.Open{}, store, noop, nil
	}
}

// openBackend builds the remote collaborators from configuration. picker may be nil.
func openBackend(picker remote.FolderPicker, l *zap.Logger) (*remote.Backend, func() error, error) {
	auth, storage, closer, err := openStorage(cfg.Remote.URL, cfg.Remote.AccessKey, l)
	if err != nil {
		return nil, closer, fmt.Errorf("failed to open remote storage: %w", err)
	}
	return &remote.Backend{Auth: auth, Picker: picker, Storage: storage}, closer, nil
}

// newCLISession returns a session reporting to stderr and to the debug log.
func newCLISession(opts ...session.Option) *session.Session {
	reporter := status.Multi{
		status.NewWriterReporter(os.Stderr),
		status.NewLogReporter(logger.With(zap.String("component", "session"))),
	}
	base := []session.Option{
		session.WithSourceOptions(sourceOptions()),
		session.WithClipboard(sink.NewClipboard(os.Stderr, logger)),
		session.WithOutputName(cfg.Join.OutputName),
	}
	return session.New(reporter, logger, append(base, opts...)...)
}
