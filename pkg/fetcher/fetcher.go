package fetcher

import (
	"bytes"
	"fmt"

	"framegen/pkg/config"
	errs "framegen/pkg/errors"
	"framegen/pkg/frames"
	"framegen/pkg/logger"
	"framegen/pkg/ratelimit"
	"framegen/pkg/retry"
	"framegen/pkg/storage"
)

// progressEvery controls how often the download loop reports progress
const progressEvery = 50

// FrameClient is the part of the frames client the fetcher depends on
type FrameClient interface {
	Search(query string) ([]frames.Frame, error)
	DownloadFrame(f frames.Frame) ([]byte, error)
}

// Stats summarizes one fetch run
type Stats struct {
	Searches   int
	Unique     int
	Downloaded int
	Skipped    int
	Failed     int
}

// Fetcher orchestrates the search-and-download pipeline: query every
// configured phrase, deduplicate frames across phrases, and download each
// unique frame once
type Fetcher struct {
	client   FrameClient
	store    *storage.Manager
	limiter  ratelimit.Limiter
	config   *config.Config
	logger   logger.Logger
	retryCfg *retry.Config
}

// New creates a Fetcher from configuration
func New(cfg *config.Config, log logger.Logger) (*Fetcher, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	client := frames.NewClient(cfg.Search.APIEndpoint, cfg.Search.ImageEndpoint, cfg.Search.RequestTimeout, log)

	store, err := storage.NewManager(cfg.Download.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Download.RetryAttempts
	retryCfg.Logger = log

	return &Fetcher{
		client:   client,
		store:    store,
		limiter:  ratelimit.NewFixedInterval(cfg.Search.Delay),
		config:   cfg,
		logger:   log,
		retryCfg: retryCfg,
	}, nil
}

// NewWithClient creates a Fetcher with an injected client and store,
// used by tests and by callers that manage their own dependencies
func NewWithClient(cfg *config.Config, client FrameClient, store *storage.Manager, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Download.RetryAttempts
	retryCfg.Logger = log

	return &Fetcher{
		client:   client,
		store:    store,
		limiter:  ratelimit.NewFixedInterval(cfg.Search.Delay),
		config:   cfg,
		logger:   log,
		retryCfg: retryCfg,
	}
}

// Run searches every phrase, merges the results by frame key, and downloads
// each unique frame that is not already on disk. Individual search or
// download failures are logged and counted, never fatal to the run.
func (f *Fetcher) Run(phrases []string) (*Stats, error) {
	if len(phrases) == 0 {
		phrases = f.config.Search.Phrases
	}
	if len(phrases) == 0 {
		return nil, errs.New(errs.ErrorTypeClientInput, "no search phrases configured")
	}

	stats := &Stats{}

	unique := f.collectFrames(phrases, stats)
	stats.Unique = len(unique)

	f.logger.InfoWithFields("search complete", map[string]interface{}{
		"phrases": len(phrases),
		"unique":  stats.Unique,
	})

	maxTotal := 0
	if f.config.Search.MaxPerSearch > 0 {
		maxTotal = f.config.Search.MaxPerSearch * len(phrases)
	}

	for i, frame := range unique {
		if maxTotal > 0 && stats.Downloaded >= maxTotal {
			f.logger.InfoWithFields("download cap reached", map[string]interface{}{
				"cap": maxTotal,
			})
			break
		}

		switch f.downloadFrame(frame) {
		case outcomeDownloaded:
			stats.Downloaded++
		case outcomeSkipped:
			stats.Skipped++
		case outcomeFailed:
			stats.Failed++
		}

		if (i+1)%progressEvery == 0 {
			f.logger.InfoWithFields("download progress", map[string]interface{}{
				"processed": i + 1,
				"total":     stats.Unique,
			})
		}
	}

	f.logger.InfoWithFields("fetch complete", map[string]interface{}{
		"downloaded":    stats.Downloaded,
		"skipped":       stats.Skipped,
		"failed":        stats.Failed,
		"total_on_disk": f.store.Count(),
	})

	return stats, nil
}

// collectFrames queries every phrase and merges results into one ordered,
// deduplicated slice. A frame seen under several phrases appears once, in
// the position of its first sighting.
func (f *Fetcher) collectFrames(phrases []string, stats *Stats) []frames.Frame {
	seen := make(map[string]bool)
	var unique []frames.Frame

	for _, phrase := range phrases {
		f.limiter.Wait()
		stats.Searches++

		f.logger.DebugWithFields("searching", map[string]interface{}{
			"phrase": phrase,
		})

		results, err := f.client.Search(phrase)
		if err != nil {
			f.logger.WithError(err).WithField("phrase", phrase).Error("search failed")
			stats.Failed++
			continue
		}

		for _, frame := range results {
			key := frame.Key()
			if !seen[key] {
				seen[key] = true
				unique = append(unique, frame)
			}
		}
	}

	return unique
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// downloadFrame fetches one frame to disk unless it already exists
func (f *Fetcher) downloadFrame(frame frames.Frame) outcome {
	key := frame.Key()

	if f.store.Has(key) {
		logger.LogDownload(key, false, nil)
		return outcomeSkipped
	}

	f.limiter.Wait()

	data, err := retry.DoWithResult(func() ([]byte, error) {
		return f.client.DownloadFrame(frame)
	}, f.retryCfg)
	if err != nil {
		logger.LogDownload(key, false, err)
		return outcomeFailed
	}

	if err := f.store.SaveFrame(bytes.NewReader(data), key); err != nil {
		logger.LogDownload(key, false, err)
		return outcomeFailed
	}

	logger.LogDownload(key, true, nil)
	return outcomeDownloaded
}
