package inventory

import "time"

// Camera is one inventory row.
type Camera struct {
	Kind      string    `json:"kind"`
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	MaxWidth  int       `json:"max_width"`
	MaxHeight int       `json:"max_height"`
	IsColor   bool      `json:"is_color"`
	BitDepth  int       `json:"bit_depth"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	TimesSeen int       `json:"times_seen"`
}

// Enumeration is one registry build.
type Enumeration struct {
	ID          int64     `json:"id"`
	Trigger     string    `json:"trigger"`
	CameraCount int       `json:"camera_count"`
	CreatedAt   time.Time `json:"created_at"`
}
