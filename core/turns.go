package orchestration

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/koscakluka/ema-voiceagent/core/scenarios"
)

// TurnSource produces the user turns of a session.
//
// Turns is consumed once the session is active. ready receives a value every
// time the agent finishes an audio response. Iteration must stop when ctx is
// done.
type TurnSource interface {
	Interactive() bool
	Turns(ctx context.Context, ready <-chan struct{}) iter.Seq2[scenarios.Turn, error]
}

type scriptedTurns struct {
	turns  []scenarios.Turn
	pacing Pacing
}

// ScriptedTurns delivers turns in order, waiting FirstTurnDelay before the
// first one and TurnDelay between the rest. After the last turn it keeps
// iterating for FinalResponseWait so the agent can answer.
func ScriptedTurns(turns []scenarios.Turn, pacing Pacing) TurnSource {
	return &scriptedTurns{turns: slices.Clone(turns), pacing: pacing}
}

func (s *scriptedTurns) Interactive() bool { return false }

func (s *scriptedTurns) Turns(ctx context.Context, ready <-chan struct{}) iter.Seq2[scenarios.Turn, error] {
	return func(yield func(scenarios.Turn, error) bool) {
		for i, turn := range s.turns {
			delay := s.pacing.TurnDelay
			if i == 0 {
				delay = s.pacing.FirstTurnDelay
			}
			if err := sleepContext(ctx, delay); err != nil {
				return
			}

			if i > 0 && s.pacing.AwaitResponse > 0 {
				if err := awaitReady(ctx, ready, s.pacing.AwaitResponse); err != nil && ctx.Err() != nil {
					return
				}
			}

			drainReady(ready)
			if !yield(turn, nil) {
				return
			}
		}

		_ = sleepContext(ctx, s.pacing.FinalResponseWait)
	}
}

var defaultQuitWords = []string{"quit", "exit", "q"}

type InteractiveOptions struct {
	Label        string
	QuitWords    []string
	SettleDelay  time.Duration
	ReadyTimeout time.Duration
	OnPrompt     func()
}

type InteractiveOption func(*InteractiveOptions)

// WithPrompt sets a callback invoked every time input is accepted again.
func WithPrompt(prompt func()) InteractiveOption {
	return func(o *InteractiveOptions) {
		o.OnPrompt = prompt
	}
}

func WithQuitWords(words ...string) InteractiveOption {
	return func(o *InteractiveOptions) {
		o.QuitWords = words
	}
}

func WithTurnLabel(label string) InteractiveOption {
	return func(o *InteractiveOptions) {
		o.Label = label
	}
}

// WithInteractivePacing takes the settle delay and ready timeout from
// pacing.
func WithInteractivePacing(pacing Pacing) InteractiveOption {
	return func(o *InteractiveOptions) {
		o.SettleDelay = pacing.SettleDelay
		o.ReadyTimeout = pacing.ReadyTimeout
	}
}

type interactiveTurns struct {
	reader  io.Reader
	options InteractiveOptions
}

// InteractiveTurns reads one turn per line from r. Input ends on a quit
// word or end of input. Empty lines are skipped. After each turn input is
// only accepted again once the agent finished answering.
func InteractiveTurns(r io.Reader, opts ...InteractiveOption) TurnSource {
	options := InteractiveOptions{
		Label:        "custom",
		QuitWords:    defaultQuitWords,
		SettleDelay:  DemoPacing().SettleDelay,
		ReadyTimeout: DemoPacing().ReadyTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &interactiveTurns{reader: r, options: options}
}

func (s *interactiveTurns) Interactive() bool { return true }

type inputLine struct {
	text string
	err  error
}

func (s *interactiveTurns) Turns(ctx context.Context, ready <-chan struct{}) iter.Seq2[scenarios.Turn, error] {
	return func(yield func(scenarios.Turn, error) bool) {
		done := make(chan struct{})
		defer close(done)
		lines := readLines(s.reader, done)

		awaitingResponse := false
		for {
			if awaitingResponse {
				if err := awaitReady(ctx, ready, s.options.ReadyTimeout); err != nil && ctx.Err() != nil {
					return
				}
			}
			awaitingResponse = false

			if s.options.OnPrompt != nil {
				s.options.OnPrompt()
			}

			var line inputLine
			var ok bool
			select {
			case <-ctx.Done():
				return
			case line, ok = <-lines:
			}
			if !ok {
				return
			}
			if line.err != nil {
				yield(scenarios.Turn{}, fmt.Errorf("failed to read input: %w", line.err))
				return
			}

			text := strings.TrimSpace(line.text)
			if text == "" {
				continue
			}
			if s.isQuitWord(text) {
				return
			}

			drainReady(ready)
			if !yield(scenarios.Turn{Label: s.options.Label, Text: text}, nil) {
				return
			}

			if err := sleepContext(ctx, s.options.SettleDelay); err != nil {
				return
			}
			awaitingResponse = true
		}
	}
}

func (s *interactiveTurns) isQuitWord(text string) bool {
	for _, word := range s.options.QuitWords {
		if strings.EqualFold(text, word) {
			return true
		}
	}
	return false
}

// readLines scans r until end of input or until done is closed. A pending
// read on r is abandoned, not interrupted.
func readLines(r io.Reader, done <-chan struct{}) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- inputLine{text: scanner.Text()}:
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- inputLine{err: err}:
			case <-done:
			}
		}
	}()
	return lines
}
