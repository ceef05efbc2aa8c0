package assets

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Scheduler fires downloads without blocking normalization and tracks
// them in a pending set. The orchestrator waits on the set at the end of
// each ingestion stage, so "stage complete" guarantees every download
// scheduled by that stage has finished.
type Scheduler struct {
	downloader *Downloader
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewScheduler wraps a downloader in a pending-work set.
func NewScheduler(downloader *Downloader, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		downloader: downloader,
		logger:     logger.With(zap.String("component", "asset_scheduler")),
	}
}

// LocalPath returns the deterministic destination path for a file name.
func (s *Scheduler) LocalPath(fileName string) string {
	return s.downloader.LocalPath(fileName)
}

// Schedule starts the download in the background and immediately returns
// the deterministic local path. A failed download is logged and the file
// is simply absent; the caller's field still points at the path it would
// have had.
func (s *Scheduler) Schedule(ctx context.Context, remoteURL, fileName string) string {
	dest := s.downloader.LocalPath(fileName)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.downloader.EnsureDownloaded(ctx, remoteURL, fileName); err != nil {
			s.logger.Warn("asset download failed",
				zap.String("url", remoteURL),
				zap.Error(err))
		}
	}()

	return dest
}

// Fetch downloads synchronously and returns the local path.
func (s *Scheduler) Fetch(ctx context.Context, remoteURL, fileName string) (string, error) {
	return s.downloader.EnsureDownloaded(ctx, remoteURL, fileName)
}

// Wait blocks until every scheduled download has completed or failed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
