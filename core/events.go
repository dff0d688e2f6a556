package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-voiceagent/core/agent"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleEvent applies one remote event to the session. Events arrive here
// one at a time in the order they were received.
func (s *session) handleEvent(ctx context.Context, event agent.Event) {
	switch event.Type {
	case agent.EventWelcome:
		s.result.RequestID = event.RequestID

	case agent.EventSettingsApplied:
		if s.state != StateAwaitingAcknowledgement {
			logger.Debug("ignoring repeated settings acknowledgement", "session_id", s.result.SessionID)
			return
		}
		s.result.SettingsApplied = true
		if s.options.onSettingsApplied != nil {
			s.options.onSettingsApplied()
		}
		s.activate()

	case agent.EventConversationText:
		entry := TranscriptEntry{Role: event.Role, Content: event.Content}
		s.result.Transcript = append(s.result.Transcript, entry)
		if s.options.onConversationText != nil {
			s.options.onConversationText(entry)
		}
		if event.Role == agent.RoleAssistant && s.options.onAgentText != nil {
			s.options.onAgentText(event.Content)
		}

	case agent.EventAgentAudioDone:
		s.flushAudio(ctx, false)
		signalReady(s.ready)

	case agent.EventAudio:
		s.buffer.AddAudio(event.Audio)
		audioBytesCounter.Add(ctx, int64(len(event.Audio)))
		if s.options.onAudio != nil {
			s.options.onAudio(event.Audio)
		}

	case agent.EventError:
		s.handleRemoteError(ctx, *event.RemoteError())

	case agent.EventWarning, agent.EventInjectionRefused:
		warning := *event.RemoteError()
		s.result.Warnings = append(s.result.Warnings, warning)
		if s.options.onWarning != nil {
			s.options.onWarning(warning)
		}

	default:
		logger.Debug("unhandled agent event", "session_id", s.result.SessionID, "type", string(event.Type))
	}
}

func (s *session) handleRemoteError(ctx context.Context, remoteErr agent.RemoteError) {
	if agent.IsIdleTimeout(remoteErr.Code) {
		s.result.IdleTimeouts++
		logger.Debug("agent reported idle timeout", "session_id", s.result.SessionID)
		return
	}

	remoteErrorsCounter.Add(ctx, 1)
	s.result.Errors = append(s.result.Errors, remoteErr)
	if s.options.onError != nil {
		s.options.onError(remoteErr)
	}

	if remoteErr.IsFatal() {
		s.result.Fatal = &remoteErr
		span := trace.SpanFromContext(ctx)
		span.RecordError(&remoteErr)
		span.SetStatus(codes.Error, remoteErr.Error())
		s.beginClose(fmt.Sprintf("fatal error %s", remoteErr.Code))
	}
}

// flushAudio hands the buffered audio to the sink. The buffer is reset even
// when the sink fails.
func (s *session) flushAudio(ctx context.Context, final bool) {
	if s.buffer.Len() == 0 {
		return
	}

	duration := s.buffer.Duration()
	data := s.buffer.Take()
	if s.sink == nil {
		return
	}

	s.saved++
	file, err := s.sink.WriteSegment(ctx, AudioSegment{
		Prefix:   s.options.audioPrefix,
		Turn:     s.saved,
		Final:    final,
		Audio:    data,
		Duration: duration,
	})
	if err != nil {
		err = fmt.Errorf("failed to save agent audio: %w", err)
		logger.Error(err.Error(), "session_id", s.result.SessionID)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		return
	}

	s.result.AudioFiles = append(s.result.AudioFiles, file)
	if s.options.onAudioSaved != nil {
		s.options.onAudioSaved(file)
	}
}
