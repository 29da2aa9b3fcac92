// Package batch runs a list of downloads across a bounded worker
// pool. Parallelism only spans distinct URLs; each individual fetch
// stays strictly sequential, one chunk in flight at a time.
package batch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/LilHomer/pytube/internal/download"
	"github.com/LilHomer/pytube/request"
	"github.com/LilHomer/pytube/utils"
)

type Job struct {
	ID         string
	URL        string
	OutputPath string
	Sequential bool
	MaxRetries int
}

// NewJob builds a tagged job from a download-list entry.
func NewJob(entry utils.DownloadEntry, maxRetries int) Job {
	return Job{
		ID:         uuid.New().String(),
		URL:        entry.URL,
		OutputPath: entry.OutputPath,
		Sequential: entry.Sequential,
		MaxRetries: maxRetries,
	}
}

// Run executes the jobs with numWorkers workers sharing one client.
// It returns an error when any job failed; the rest still complete.
func Run(jobs []Job, numWorkers int, client *request.Client) error {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	jobCh := make(chan Job, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var failed int64
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				logger := log.With().Str("job", job.ID).Str("url", job.URL).Logger()
				logger.Info().Str("out", job.OutputPath).Msg("Starting job")
				err := download.Run(download.Config{
					URL:        job.URL,
					OutputPath: job.OutputPath,
					Sequential: job.Sequential,
					MaxRetries: job.MaxRetries,
				}, client)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					logger.Error().Err(err).Msg("Job failed")
					continue
				}
				logger.Info().Msg("Job completed")
			}
		}()
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(jobs))
	}
	return nil
}
