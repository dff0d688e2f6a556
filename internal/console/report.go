package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	orchestration "github.com/koscakluka/ema-voiceagent/core"
	"github.com/koscakluka/ema-voiceagent/core/agent"
)

// ReportEntry is one finished session of a suite run.
type ReportEntry struct {
	Result *orchestration.Result `json:"result"`
	// AudioTranscripts maps saved audio file names to what was heard in them.
	AudioTranscripts map[string]string `json:"audio_transcripts,omitempty"`
}

type ReportMeta struct {
	Title     string    `json:"title"`
	VoiceID   string    `json:"voice_id"`
	TTSModel  string    `json:"tts_model"`
	STTModel  string    `json:"stt_model"`
	LLM       string    `json:"llm"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary prints the conversation of a single session.
func (p *Printer) Summary(result *orchestration.Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n", p.styles.rule.Render(rule("─", 60)))
	fmt.Fprintf(&b, "  %s\n", p.styles.title.Render("CONVERSATION SUMMARY"))
	fmt.Fprintf(&b, "  %s\n", p.styles.rule.Render(rule("─", 60)))
	p.writeTranscript(&b, result.Transcript, "YOU")

	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\n  %s\n", p.styles.error.Render("Errors:"))
		writeRemoteErrors(&b, result.Errors)
	}
	if result.Abandoned {
		fmt.Fprintf(&b, "\n  %s\n", p.styles.warning.Render("Session timed out before it finished."))
	}
	b.WriteString("\n")
	p.printf("%s", b.String())
}

func (p *Printer) writeTranscript(b *strings.Builder, transcript []orchestration.TranscriptEntry, userTag string) {
	for _, entry := range transcript {
		switch entry.Role {
		case agent.RoleUser:
			prefix := userTag + ":"
			if entry.Label != "" {
				prefix = fmt.Sprintf("%s [%s]:", userTag, entry.Label)
			}
			fmt.Fprintf(b, "    %s %s\n", p.styles.user.Render(prefix), wrap(entry.Content, p.width, len(prefix)+5))
		case agent.RoleAssistant:
			fmt.Fprintf(b, "    %s %s\n", p.styles.agent.Render("AGENT:"), wrap(entry.Content, p.width, 11))
		}
	}
}

func writeRemoteErrors(b *strings.Builder, errs []agent.RemoteError) {
	for _, err := range errs {
		fmt.Fprintf(b, "    [%s] %s\n", err.Code, err.Description)
	}
}

// Report prints the suite report.
func (p *Printer) Report(meta ReportMeta, entries []ReportEntry) {
	var b strings.Builder
	thick := rule("=", p.width)
	thin := rule("─", p.width)

	fmt.Fprintf(&b, "\n\n%s\n  %s\n%s\n\n", thick, p.styles.title.Render(meta.Title), thick)
	fmt.Fprintf(&b, "  Voice ID  : %s\n", meta.VoiceID)
	fmt.Fprintf(&b, "  TTS Model : %s\n", meta.TTSModel)
	fmt.Fprintf(&b, "  STT Model : %s\n", meta.STTModel)
	fmt.Fprintf(&b, "  LLM       : %s\n", meta.LLM)
	fmt.Fprintf(&b, "  Timestamp : %s\n", meta.Timestamp.Format(time.RFC3339))

	passed := 0
	for _, entry := range entries {
		r := entry.Result
		if r.Passed() {
			passed++
		}

		fmt.Fprintf(&b, "\n%s\n", p.styles.rule.Render(thin))
		fmt.Fprintf(&b, "  %s\n", p.styles.title.Render(r.Scenario.Title()))
		fmt.Fprintf(&b, "  Config: %s\n", languageConfig(r.Scenario))
		fmt.Fprintf(&b, "%s\n", p.styles.rule.Render(thin))

		if r.SettingsApplied {
			fmt.Fprintf(&b, "  Settings: %s\n", p.styles.ok.Render("ACCEPTED"))
		} else {
			fmt.Fprintf(&b, "  Settings: %s\n", p.styles.error.Render("REJECTED"))
		}

		if len(r.Errors) > 0 {
			b.WriteString("  Errors:\n")
			writeRemoteErrors(&b, r.Errors)
		}
		if len(r.Warnings) > 0 {
			b.WriteString("  Warnings:\n")
			writeRemoteErrors(&b, r.Warnings)
		}
		if r.Abandoned {
			fmt.Fprintf(&b, "  %s\n", p.styles.warning.Render("Timed out"))
		}

		b.WriteString("  Conversation:\n")
		p.writeTranscript(&b, r.Transcript, "USER")

		if len(r.AudioFiles) > 0 {
			fmt.Fprintf(&b, "  Audio: %d files, %s bytes total\n", len(r.AudioFiles), numbers.Sprintf("%d", r.AudioBytes()))
		} else {
			fmt.Fprintf(&b, "  Audio: %s\n", p.styles.warning.Render("NONE — TTS may have failed"))
		}
		for _, file := range r.AudioFiles {
			if heard, ok := entry.AudioTranscripts[file.Name]; ok {
				fmt.Fprintf(&b, "    %s: %s\n", file.Name, wrap(fmt.Sprintf("%q", heard), p.width, len(file.Name)+6))
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n  Passed: %d/%d\n%s\n\n", thick, passed, len(entries), thick)
	p.printf("%s", b.String())
}

type resultsFile struct {
	ReportMeta
	Results []ReportEntry `json:"results"`
}

// WriteResults stores the report as indented JSON.
func WriteResults(path string, meta ReportMeta, entries []ReportEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	if err := encodeResults(f, meta, entries); err != nil {
		return err
	}
	return f.Close()
}

func encodeResults(w io.Writer, meta ReportMeta, entries []ReportEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resultsFile{ReportMeta: meta, Results: entries}); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
