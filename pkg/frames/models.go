package frames

import "fmt"

// Frame identifies one indexed screenshot by episode and timestamp.
// The search API returns more fields per result; only these two drive
// deduplication and downloads, the rest is ignored.
type Frame struct {
	Episode   string `json:"Episode"`
	Timestamp int    `json:"Timestamp"`
}

// Key returns the composite deduplication key for the frame
func (f Frame) Key() string {
	return fmt.Sprintf("%s_%d", f.Episode, f.Timestamp)
}

// Filename returns the on-disk name for the downloaded frame
func (f Frame) Filename() string {
	return f.Key() + ".jpg"
}
