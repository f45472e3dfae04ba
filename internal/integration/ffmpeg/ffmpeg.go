package ffmpeg

import "time"

const (
	name = "ffmpeg"
	// Decoding a long hi-res file on a loaded machine takes a while.
	timeout = 10 * time.Minute
)
