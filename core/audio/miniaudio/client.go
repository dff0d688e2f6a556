// Package miniaudio plays the agent's audio on the default output device.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voiceagent/core/audio"
)

type Player struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
}

// NewPlayer opens and starts the default playback device. The zero
// EncodingInfo selects the agent's output encoding.
func NewPlayer(encodingInfo audio.EncodingInfo) (*Player, error) {
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetOutputEncodingInfo()
	}
	if encodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported playback encoding %q", encodingInfo.Format.Name())
	}

	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo: " + message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	player := Player{audioContext: audioCtx}
	if err := player.playbackClient.Init(audioCtx, encodingInfo); err != nil {
		player.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := player.playbackClient.Start(); err != nil {
		player.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return &player, nil
}

// Play queues audio for playback. It never blocks on the device.
func (p *Player) Play(audio []byte) {
	if err := p.playbackClient.SendAudio(audio); err != nil {
		logger.Warn("failed to queue audio for playback", "error", err)
	}
}

// Drain waits until everything queued so far was played.
func (p *Player) Drain(ctx context.Context) error {
	return p.playbackClient.AwaitMark(ctx)
}

func (p *Player) Close() {
	_ = p.playbackClient.Uninit()
	if p.audioContext != nil {
		_ = p.audioContext.Uninit()
		p.audioContext.Free()
	}
}

func (p *Player) EncodingInfo() audio.EncodingInfo {
	return p.playbackClient.encodingInfo
}
