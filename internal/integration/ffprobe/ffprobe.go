package ffprobe

import (
	"errors"
	"time"
)

const (
	name = "ffprobe"
	// Slow hard-drives spinning up or network retrieved resources may cause timeouts if too aggressive.
	timeout = 60 * time.Second

	codecTypeAudio = "audio"
)

var (
	ErrNoAudioStream     = errors.New("audio stream not found")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidChannels   = errors.New("invalid channel count")
)
