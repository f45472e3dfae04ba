package types

type BitDepth uint

const (
	Depth8  BitDepth = 8
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// Encoding of PCM samples.
type Encoding int

const (
	// EncodingSigned is little-endian signed integer PCM (unsigned for 8 bit WAV).
	EncodingSigned Encoding = iota
	// EncodingFloat is little-endian IEEE 754 float PCM, 32 bit.
	EncodingFloat
)

func (e Encoding) String() string {
	switch e {
	case EncodingSigned:
		return "signed"
	case EncodingFloat:
		return "float"
	}

	return "unknown"
}

// PCMFormat describes an interleaved PCM stream.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
	Encoding   Encoding
}

// Spec returns the ffmpeg sample format name (s16le, s24le, s32le, f32le).
func (f PCMFormat) Spec() string {
	if f.Encoding == EncodingFloat {
		return "f32le"
	}

	switch f.BitDepth {
	case Depth8:
		return "u8"
	case Depth16:
		return "s16le"
	case Depth24:
		return "s24le"
	case Depth32:
		return "s32le"
	}

	return ""
}
