package agent

import "time"

// Snapshot captures what the simulated terminal shows and how busy the
// component tree has been.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Text      string    `json:"text,omitempty"`
	Frames    int       `json:"frames"`
	Mounted   int       `json:"mounted"`
	Renders   uint64    `json:"renders"`
}
