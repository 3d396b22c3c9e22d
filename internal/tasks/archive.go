package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/desertthunder/studyx/internal/formatter"
	"github.com/desertthunder/studyx/internal/shared"
)

// ArchiveOpts contains configuration for monthly archives.
type ArchiveOpts struct {
	Format     formatter.Format // Export format for each month
	OutputDir  string           // Base output directory (default: studyx_archive_{epoch})
	NumWorkers int              // Concurrent writers (default: DefaultWorkers)
}

// Archive writes one export file per month of recorded history into opts.OutputDir.
//
// Failed months are reported in the result without stopping the others. A manifest
// (export_manifest.json) is always written once every month has been attempted.
func (e *ArchiveEngine) Archive(ctx context.Context, prog chan<- ProgressUpdate, opts ArchiveOpts) (*ArchiveResult, error) {
	if e.sessions == nil {
		return nil, fmt.Errorf("%w: session history not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("studyx_archive_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	if opts.NumWorkers > MaxWorkers {
		opts.NumWorkers = MaxWorkers
	}

	e.sendProgress(prog, loadSessionsUpdate())
	sessions, err := e.sessions.List(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	months := GroupByMonth(sessions)
	e.sendProgress(prog, groupedUpdate(len(sessions), len(months)))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ArchiveResult{
		GeneratedAt:     e.now(),
		Format:          string(opts.Format),
		TotalMonths:     len(months),
		OutputDirectory: opts.OutputDir,
		Results:         make([]MonthResult, 0, len(months)),
	}

	jobs := make(chan MonthJob, len(months))
	results := make(chan MonthResult, len(months))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.archiveWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, job := range months {
			select {
			case <-ctx.Done():
				return
			case jobs <- job:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.Succeeded++
			e.sendProgress(prog, monthWrittenUpdate(completed, len(months), res))
		} else {
			result.Failed++
			e.logger.Warn("month export failed", "month", res.Month, "error", res.Error)
			e.sendProgress(prog, monthFailedUpdate(completed, len(months), res))
		}
	}
	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].Month < result.Results[j].Month })

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("archive cancelled after %d of %d months: %w", completed, len(months), err)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("archive completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("archive completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// archiveWorker exports months from the jobs channel until it closes or ctx ends.
func (e *ArchiveEngine) archiveWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan MonthJob,
	results chan<- MonthResult,
	opts ArchiveOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- e.exportMonth(job, opts)
	}
}

func (e *ArchiveEngine) exportMonth(job MonthJob, opts ArchiveOpts) MonthResult {
	stats := MonthStats(job.Sessions)
	res := MonthResult{
		Month:        job.Month,
		Sessions:     len(job.Sessions),
		FocusMinutes: stats.TotalStudyMinutes,
	}

	export := formatter.NewHistoryExport(job.Sessions, stats, e.now())
	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.%s", job.Month, opts.Format.Extension()))

	file, err := formatter.WriteExport(opts.Format, export, path)
	if err != nil {
		res.Error = err
		res.ErrorMessage = err.Error()
		return res
	}
	res.File = file
	res.Success = true
	return res
}
