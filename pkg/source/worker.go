// File: pkg/source/worker.go
package source

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

type job struct {
	index int
	path  string
}

type result struct {
	index  int
	loaded Loaded
	err    error
}

// Load decodes files using a worker pool. Successfully decoded files are
// returned in the order of files; failures are logged and joined into the
// returned error without discarding the other results.
func Load(ctx context.Context, files []string, maxWorkers int, logger *zap.Logger) ([]Loaded, error) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > len(files) {
		maxWorkers = len(files)
	}

	jobs := make(chan job, len(files))
	results := make(chan result, len(files))
	var wg sync.WaitGroup

	logger.Debug("Initializing worker pool", zap.Int("workers", maxWorkers), zap.Int("files", len(files)))
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go worker(ctx, w, jobs, results, &wg, logger.With(zap.Int("workerID", w)))
	}

	for i, file := range files {
		jobs <- job{index: i, path: file}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*Loaded, len(files))
	var errs []error
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		loaded := r.loaded
		ordered[r.index] = &loaded
	}

	var loaded []Loaded
	for _, l := range ordered {
		if l != nil {
			loaded = append(loaded, *l)
		}
	}

	logger.Debug("All files processed", zap.Int("loaded", len(loaded)), zap.Int("failed", len(errs)))
	return loaded, errors.Join(errs...)
}

// worker is a goroutine that decodes files from the jobs channel.
func worker(ctx context.Context, id int, jobs <-chan job, results chan<- result, wg *sync.WaitGroup, logger *zap.Logger) {
	defer wg.Done()

	for j := range jobs {
		if err := ctx.Err(); err != nil {
			results <- result{index: j.index, err: err}
			continue
		}

		loaded, err := ReadSource(j.path, logger)
		if err != nil {
			logger.Error("Worker failed to read file", zap.String("filePath", j.path), zap.Error(err))
			results <- result{index: j.index, err: err}
			continue
		}
		results <- result{index: j.index, loaded: loaded}
	}

	logger.Debug("Worker finished processing", zap.Int("workerID", id))
}
