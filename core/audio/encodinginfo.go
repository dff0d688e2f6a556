package audio

import "time"

const (
	// InputSampleRate is the rate the agent expects user audio at.
	InputSampleRate = 16000
	// OutputSampleRate is the rate the agent speaks at.
	OutputSampleRate = 24000
	DefaultFormat    = "linear16"
)

// GetInputEncodingInfo describes audio sent to the voice agent.
func GetInputEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: InputSampleRate, Format: EncodingLinear16}
}

// GetOutputEncodingInfo describes the raw audio the voice agent streams back.
// There is no container, frames are little-endian 16-bit mono samples.
func GetOutputEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: OutputSampleRate, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// Duration reports how long size bytes of mono audio play for.
func (e EncodingInfo) Duration(size int) time.Duration {
	bytesPerSecond := e.SampleRate * e.Format.ByteSize()
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(size) * time.Second / time.Duration(bytesPerSecond)
}

// ChunkSize is the byte length of d worth of mono audio.
func (e EncodingInfo) ChunkSize(d time.Duration) int {
	return int(int64(e.SampleRate) * int64(e.Format.ByteSize()) * d.Milliseconds() / 1000)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
