// Package retry provides backoff and retry logic for transient network
// failures, used by the fetcher when a frame download fails mid-run.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return client.DownloadFrame(frame, w)
//	}, nil)
//
// Only errors classified as retryable (network failures, 5xx responses)
// are retried; client mistakes fail immediately.
package retry
