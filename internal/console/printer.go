package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	orchestration "github.com/koscakluka/ema-voiceagent/core"
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numbers = message.NewPrinter(language.English)

// Printer writes live session output. It is safe for concurrent use since
// the interactive prompt and agent output come from different goroutines.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	styles styles
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, width: defaultWidth, styles: newStyles(out)}
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Header prints a boxed title block.
func (p *Printer) Header(title string, lines ...string) {
	body := p.styles.title.Render(title)
	if len(lines) > 0 {
		body += "\n" + p.styles.subtle.Render(strings.Join(lines, "\n"))
	}
	p.printf("\n%s\n\n", p.styles.header.Render(body))
}

// ScenarioBanner introduces the scenario about to run. index and total are
// only shown when total is above one.
func (p *Printer) ScenarioBanner(s scenarios.Scenario, index, total int) {
	name := s.Title()
	if total > 1 {
		name = fmt.Sprintf("[%d/%d] %s", index, total, name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n", p.styles.rule.Render(rule("━", p.width-2)))
	fmt.Fprintf(&b, "  %s\n", p.styles.title.Render(name))
	if s.Subtitle != "" {
		fmt.Fprintf(&b, "  %s\n", p.styles.subtle.Render(s.Subtitle))
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "  %s\n", p.styles.subtle.Render(wrap(s.Description, p.width, 2)))
	}
	fmt.Fprintf(&b, "  Config: %s\n", languageConfig(s))
	fmt.Fprintf(&b, "  %s\n\n", p.styles.rule.Render(rule("━", p.width-2)))
	p.printf("%s", b.String())
}

func languageConfig(s scenarios.Scenario) string {
	return fmt.Sprintf("agent.language=%s, listen.language=%s, cartesia.language=%s",
		orDefault(s.AgentLanguage, "en"), orDefault(s.ListenLanguage, "default"), orDefault(s.SpeakLanguage, "auto"))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (p *Printer) Println(text string) {
	p.printf("  %s\n", text)
}

func (p *Printer) Errorf(format string, args ...any) {
	p.printf("  %s\n", p.styles.error.Render(fmt.Sprintf(format, args...)))
}

// Prompt asks for the next interactive message.
func (p *Printer) Prompt() {
	p.printf("  %s ", p.styles.user.Render("YOU:"))
}

// SessionOptions renders the live events of one session. In interactive
// sessions the typed input is not echoed again.
func (p *Printer) SessionOptions(s scenarios.Scenario, interactive bool) []orchestration.RunOption {
	total := len(s.Turns)
	return []orchestration.RunOption{
		orchestration.WithSettingsAppliedCallback(func() {
			p.printf("  %s\n", p.styles.ok.Render("Connected and configured."))
			if interactive {
				p.printf("\n  Type messages below. Press Enter to send. Type 'quit' to exit.\n\n")
			}
		}),
		orchestration.WithUserTurnCallback(func(index int, turn scenarios.Turn) {
			if interactive {
				return
			}
			prefix := fmt.Sprintf("YOU [%s]:", turn.Label)
			if total > 1 {
				prefix = fmt.Sprintf("YOU %d/%d [%s]:", index, total, turn.Label)
			}
			p.printf("\n  %s %s\n", p.styles.user.Render(prefix), wrap(turn.Text, p.width, len(prefix)+3))
		}),
		orchestration.WithAgentTextCallback(func(text string) {
			p.printf("  %s %s\n", p.styles.agent.Render("AGENT:"), wrap(text, p.width, 9))
		}),
		orchestration.WithErrorCallback(func(err agent.RemoteError) {
			p.printf("\n  %s %s\n", p.styles.error.Render("ERROR ["+err.Code+"]:"), err.Description)
		}),
		orchestration.WithWarningCallback(func(warning agent.RemoteError) {
			p.printf("  %s %s\n", p.styles.warning.Render("WARN ["+warning.Code+"]:"), warning.Description)
		}),
		orchestration.WithAudioSavedCallback(func(file orchestration.AudioFile) {
			p.printf("       %s\n", p.styles.subtle.Render(fmt.Sprintf("audio saved: %s (%s bytes)", file.Name, numbers.Sprintf("%d", file.Size))))
		}),
	}
}
