package orchestration

import (
	"time"

	"github.com/koscakluka/ema-voiceagent/core/audio"
)

// audioBuffer collects the agent's audio of the current response. It is
// owned by the session loop and not safe for concurrent use.
type audioBuffer struct {
	encodingInfo audio.EncodingInfo
	audio        []byte
}

func newAudioBuffer(encodingInfo audio.EncodingInfo) *audioBuffer {
	return &audioBuffer{encodingInfo: encodingInfo}
}

func (b *audioBuffer) AddAudio(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.audio = append(b.audio, chunk...)
}

func (b *audioBuffer) Len() int { return len(b.audio) }

func (b *audioBuffer) Duration() time.Duration {
	return b.encodingInfo.Duration(len(b.audio))
}

// Take returns the buffered audio and resets the buffer.
func (b *audioBuffer) Take() []byte {
	taken := b.audio
	b.audio = nil
	return taken
}
