// Package storage manages the fetcher's output directory of downloaded
// frames.
//
// The Manager scans the directory on startup and keeps an in-memory set of
// frame keys so idempotent re-runs skip files that already exist without
// touching the network. Writes go through a temporary file and rename so a
// crashed download never leaves a truncated frame behind.
//
// Usage:
//
//	manager, err := storage.NewManager("data/frames")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !manager.Has("S04E12_100") {
//	    err = manager.SaveFrame(imageReader, "S04E12_100")
//	}
package storage
