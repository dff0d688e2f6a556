package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrSessionNotActive = errors.New("session is not active")

const defaultCloseTimeout = 3 * time.Second

// Orchestrator runs voice agent sessions. It holds no per-session state
// and may run several sessions one after another or concurrently.
type Orchestrator struct {
	config Config
	sink   AudioSink
}

func NewOrchestrator(config Config, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{config: config}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run opens a session for scenario and drives it until it is closed. A nil
// source delivers the scenario's scripted turns.
//
// The returned Result is complete even when an error is returned. The error
// is non-nil only when the session could not be opened or when the agent
// reported a fatal error, in which case it is an *agent.RemoteError.
func (o *Orchestrator) Run(ctx context.Context, scenario scenarios.Scenario, source TurnSource, opts ...RunOption) (*Result, error) {
	if err := o.config.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	if source == nil {
		if scenario.Interactive() {
			return nil, fmt.Errorf("scenario %s has no scripted turns", scenario.ID)
		}
		source = ScriptedTurns(scenario.Turns, o.config.Pacing)
	}

	runOptions := RunOptions{audioPrefix: scenario.ID}
	for _, opt := range opts {
		opt(&runOptions)
	}

	ctx, span := tracer.Start(ctx, "run agent session", trace.WithAttributes(
		attribute.String("scenario.id", scenario.ID),
		attribute.Bool("session.interactive", source.Interactive()),
	))
	defer span.End()

	s := newSession(o, scenario.Clone(), source, runOptions)
	span.SetAttributes(attribute.String("session.id", s.result.SessionID))

	result, err := s.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

type commandKind int

const (
	commandSendTurn commandKind = iota
	commandFinish
)

// command is sent from the turn source worker to the session loop.
type command struct {
	kind commandKind
	turn scenarios.Turn
	err  error
	done chan error
}

// session is owned by its run loop. Only the loop goroutine touches its
// fields, with the exception of liveness which guards itself.
type session struct {
	config  Config
	sink    AudioSink
	options RunOptions
	source  TurnSource

	conn   *agent.Conn
	state  State
	result *Result
	buffer *audioBuffer
	saved  int

	ready    chan struct{}
	commands chan command

	activeCtx  context.Context
	stopActive context.CancelFunc
	delivery   chan struct{}
	liveness   *liveness

	timer         *time.Timer
	timeout       <-chan time.Time
	closeDeadline <-chan time.Time

	finishOnce sync.Once
}

func newSession(o *Orchestrator, scenario scenarios.Scenario, source TurnSource, options RunOptions) *session {
	return &session{
		config:  o.config,
		sink:    o.sink,
		options: options,
		source:  source,
		state:   StateConnecting,
		result: &Result{
			SessionID:   uuid.NewString(),
			Scenario:    scenario,
			Interactive: source.Interactive(),
			Transcript:  []TranscriptEntry{},
			Errors:      []agent.RemoteError{},
			Warnings:    []agent.RemoteError{},
			AudioFiles:  []AudioFile{},
			State:       StateConnecting,
			StartedAt:   time.Now(),
		},
		buffer:   newAudioBuffer(o.config.Providers.Output),
		ready:    make(chan struct{}, 1),
		commands: make(chan command),
	}
}

func (s *session) run(ctx context.Context) (*Result, error) {
	s.activeCtx, s.stopActive = context.WithCancel(ctx)
	defer s.stopActive()

	conn, err := agent.Dial(ctx, s.config.URL, s.config.APIKey)
	if err != nil {
		s.result.CloseReason = "connection failed"
		s.finish(ctx)
		return s.result, fmt.Errorf("failed to open agent session: %w", err)
	}
	s.conn = conn

	settings := agent.BuildSettings(s.result.Scenario, s.config.Providers)
	if err := s.conn.SendSettings(settings); err != nil {
		s.result.CloseReason = "settings not sent"
		s.finish(ctx)
		return s.result, fmt.Errorf("failed to send settings: %w", err)
	}
	s.setState(StateAwaitingAcknowledgement)

	s.armTimeout()
	defer s.timer.Stop()

	events, readErr := receive(s.conn)
	ctxDone := ctx.Done()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				s.disconnected(<-readErr)
				s.finish(ctx)
				return s.result, s.fatalError()
			}
			s.handleEvent(ctx, event)

		case cmd := <-s.commands:
			s.handleCommand(cmd)

		case <-s.timeout:
			s.timeout = nil
			s.result.Abandoned = true
			logger.Warn("agent session timed out", "session_id", s.result.SessionID, "state", s.state.String())
			s.beginClose("timed out")

		case <-ctxDone:
			ctxDone = nil
			s.beginClose("cancelled")

		case <-s.closeDeadline:
			s.closeDeadline = nil
			logger.Debug("close handshake not answered, dropping connection", "session_id", s.result.SessionID)
			_ = s.conn.Close()
		}
	}
}

// armTimeout bounds scripted sessions as a whole and interactive sessions
// until their settings are acknowledged.
func (s *session) armTimeout() {
	d := s.config.Pacing.BaseTimeout
	if !s.source.Interactive() {
		d = s.config.Pacing.Timeout(len(s.result.Scenario.Turns))
	}
	s.timer = time.NewTimer(d)
	if d > 0 {
		s.timeout = s.timer.C
	}
}

func receive(conn *agent.Conn) (<-chan agent.Event, <-chan error) {
	events := make(chan agent.Event, 64)
	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			event, err := conn.ReadEvent()
			if err != nil {
				readErr <- err
				return
			}
			events <- event
		}
	}()
	return events, readErr
}

func (s *session) setState(state State) {
	if s.state == state {
		return
	}
	logger.Debug("agent session state changed", "session_id", s.result.SessionID, "from", s.state.String(), "to", state.String())
	s.state = state
	s.result.State = state
	if s.options.onStateChange != nil {
		s.options.onStateChange(state)
	}
}

// activate starts liveness and turn delivery once the agent accepted the
// settings.
func (s *session) activate() {
	if s.source.Interactive() {
		s.timer.Stop()
		s.timeout = nil
	}
	s.setState(StateActive)

	s.liveness = startLiveness(s.activeCtx, s.config.Pacing.KeepAliveInterval, s.conn.KeepAlive)

	s.delivery = make(chan struct{})
	go func() {
		defer close(s.delivery)
		deliver := panicSafeNamedWorker("turn delivery", s.deliverTurns)
		if err := deliver(s.activeCtx); err != nil {
			logger.Error("turn delivery stopped", "session_id", s.result.SessionID, "error", err)
		}
	}()
}

// deliverTurns runs on its own goroutine and hands every turn of the source
// to the session loop, waiting until each was sent.
func (s *session) deliverTurns(ctx context.Context) error {
	var sourceErr error
	for turn, err := range s.source.Turns(ctx, s.ready) {
		if err != nil {
			sourceErr = err
			break
		}

		done := make(chan error, 1)
		select {
		case s.commands <- command{kind: commandSendTurn, turn: turn, done: done}:
		case <-ctx.Done():
			return nil
		}
		select {
		case err := <-done:
			if errors.Is(err, ErrSessionNotActive) {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	select {
	case s.commands <- command{kind: commandFinish, err: sourceErr}:
	case <-ctx.Done():
	}
	return nil
}

func (s *session) handleCommand(cmd command) {
	switch cmd.kind {
	case commandSendTurn:
		cmd.done <- s.sendTurn(cmd.turn)
	case commandFinish:
		reason := "turns completed"
		if s.source.Interactive() {
			reason = "input ended"
		}
		if cmd.err != nil {
			logger.Warn("turn source failed", "session_id", s.result.SessionID, "error", cmd.err)
			reason = cmd.err.Error()
		}
		s.beginClose(reason)
	}
}

func (s *session) sendTurn(turn scenarios.Turn) error {
	if s.state != StateActive {
		return ErrSessionNotActive
	}

	if err := s.conn.InjectUserMessage(turn.Text); err != nil {
		logger.Error("failed to inject user message", "session_id", s.result.SessionID, "error", err)
		return fmt.Errorf("failed to inject user message: %w", err)
	}

	s.result.TurnsSent++
	s.result.Transcript = append(s.result.Transcript, TranscriptEntry{
		Role:    agent.RoleUser,
		Label:   turn.Label,
		Content: turn.Text,
	})
	turnsSentCounter.Add(s.activeCtx, 1)

	if s.options.onUserTurn != nil {
		s.options.onUserTurn(s.result.TurnsSent, turn)
	}
	return nil
}

// beginClose starts the close handshake. Once closing no further turns are
// sent and liveness is stopped.
func (s *session) beginClose(reason string) {
	if s.state >= StateClosing {
		return
	}
	s.result.CloseReason = reason
	s.setState(StateClosing)
	s.stopActive()
	s.liveness.stop()

	if err := s.conn.CloseGracefully(); err != nil {
		logger.Debug("failed to close agent session gracefully", "session_id", s.result.SessionID, "error", err)
		_ = s.conn.Close()
		return
	}

	closeTimeout := s.config.Pacing.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = defaultCloseTimeout
	}
	s.closeDeadline = time.After(closeTimeout)
}

// disconnected handles the end of the inbound stream.
func (s *session) disconnected(err error) {
	if s.state >= StateClosing {
		return
	}

	if agent.IsNormalClosure(err) {
		s.result.CloseReason = "closed by agent"
	} else {
		s.result.CloseReason = fmt.Sprintf("connection lost: %v", err)
		logger.Warn("agent connection lost", "session_id", s.result.SessionID, "error", err)
	}
	s.setState(StateClosing)
}

// finish runs exactly once per session: it stops every worker, flushes the
// remaining audio and marks the session closed.
func (s *session) finish(ctx context.Context) {
	s.finishOnce.Do(func() {
		if s.stopActive != nil {
			s.stopActive()
		}
		s.liveness.stop()
		s.liveness.wait()
		if s.delivery != nil {
			<-s.delivery
		}

		s.flushAudio(context.WithoutCancel(ctx), true)

		if s.conn != nil {
			_ = s.conn.Close()
		}

		s.result.KeepAlivesSent = s.liveness.count()
		s.result.EndedAt = time.Now()
		s.setState(StateClosed)

		if s.options.onClosed != nil {
			s.options.onClosed(s.result)
		}
	})
}

func (s *session) fatalError() error {
	if s.result.Fatal == nil {
		return nil
	}
	return s.result.Fatal
}
