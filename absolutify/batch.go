package absolutify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// BatchInput ...
type BatchInput struct {
	Files []string
	// OutputPattern names the output file; {filename} is replaced with the
	// input's stem.
	OutputPattern string
	// OutputDir, when set, must exist; the default is next to each input.
	OutputDir   string
	Override    bool
	Concurrency int
}

// DocumentResult is the outcome for one document: either the raw
// reference to URL mapping, or the captured error.
type DocumentResult struct {
	Path   string
	Images map[string]string
	Err    error
}

// Summary ...
type Summary struct {
	Succeeded []DocumentResult
	Failed    []DocumentResult
}

// ProcessAll runs the per-document pipeline for every file across a worker
// pool of min(input.Concurrency, len(input.Files)) goroutines. Failures are
// isolated: one document failing never aborts the others. The returned
// error covers up-front configuration problems only; per-document failures
// land in Summary.Failed.
func (p *Processor) ProcessAll(ctx context.Context, input BatchInput) (Summary, error) {
	if input.OutputDir != "" {
		exists, err := p.pathChecker.IsPathExists(input.OutputDir)
		if err != nil {
			return Summary{}, fmt.Errorf("check output dir: %w", err)
		}
		if !exists {
			return Summary{}, fmt.Errorf("output dir does not exist: %s", input.OutputDir)
		}
	}

	workers := input.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(input.Files) {
		workers = len(input.Files)
	}

	jobs := make(chan string)
	results := make(chan DocumentResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				images, err := p.Process(ctx, ProcessInput{
					SourcePath: path,
					OutputPath: outputPath(path, input.OutputPattern, input.OutputDir),
					Override:   input.Override,
				})
				results <- DocumentResult{Path: path, Images: images, Err: err}
			}
		}()
	}

	go func() {
		for _, file := range input.Files {
			jobs <- file
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// This loop is the only log writer while workers run, so result lines
	// are never interleaved.
	var summary Summary
	for result := range results {
		if result.Err != nil {
			p.logger.Errorf("FAILED: %s: %s", result.Path, result.Err)
			summary.Failed = append(summary.Failed, result)
			continue
		}
		p.logger.Donef("SUCCESS: %s (%d images)", result.Path, len(result.Images))
		summary.Succeeded = append(summary.Succeeded, result)
	}
	return summary, nil
}

func outputPath(sourcePath, pattern, outputDir string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := strings.ReplaceAll(pattern, "{filename}", stem)
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(sourcePath), name)
}
