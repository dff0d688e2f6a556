package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-voiceagent/core"
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
	"github.com/koscakluka/ema-voiceagent/core/speechtotext"
	"github.com/koscakluka/ema-voiceagent/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-voiceagent/core/texttospeech"
	"github.com/koscakluka/ema-voiceagent/core/texttospeech/cartesia"
	"github.com/koscakluka/ema-voiceagent/internal/config"
	"github.com/koscakluka/ema-voiceagent/internal/console"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130

	defaultAudioDir    = "./test_results"
	defaultPause       = 3 * time.Second
	resultsFileName    = "results.json"
	baselineFileName   = "cartesia_baseline.pcm"
	baselineText       = "Hola, this is a Cartesia baseline check. ¿Me escuchas bien?"
	reportTitle        = "DEEPGRAM VOICE AGENT + CARTESIA MULTILINGUAL TTS — TEST REPORT"
	audioCheckLanguage = "multi"
)

var suitePacing = orchestration.SuitePacing

type Config struct {
	Filters      []string
	ScenarioFile string
	EnvFiles     []string
	AudioDir     string
	ResultsPath  string
	Pause        time.Duration
	Transcribe   bool
	CheckVoice   bool
	PrintSchema  bool
	ListenURL    string
	CartesiaURL  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg, err := parseArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if cfg.PrintSchema {
		schema, err := scenarios.Schema()
		if err != nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(out, string(schema))
		return exitOK
	}

	env, err := config.Load(defaultAudioDir, cfg.EnvFiles...)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitUsage
	}
	if err := env.RequireAgent(); err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitUsage
	}
	if cfg.AudioDir != "" {
		env.AudioDir = cfg.AudioDir
	}
	if cfg.ResultsPath == "" {
		cfg.ResultsPath = filepath.Join(env.AudioDir, resultsFileName)
	}

	set := scenarios.Suite()
	if cfg.ScenarioFile != "" {
		if set, err = scenarios.LoadFile(cfg.ScenarioFile); err != nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return exitUsage
		}
	}
	selected := scenarios.Match(set, cfg.Filters...)
	if len(selected) == 0 {
		fmt.Fprintf(errOut, "No matching scenarios for: %s\n", strings.Join(cfg.Filters, " "))
		fmt.Fprintf(errOut, "Available: %s\n", strings.Join(scenarioIDs(set), ", "))
		return exitUsage
	}

	ttsOpts := []cartesia.ClientOption{cartesia.WithDefaultVoice(env.CartesiaVoiceID)}
	if cfg.CartesiaURL != "" {
		ttsOpts = append(ttsOpts, cartesia.WithBaseURL(cfg.CartesiaURL))
	}
	tts, err := cartesia.NewClient(env.CartesiaAPIKey, ttsOpts...)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitUsage
	}
	sink, err := orchestration.NewFileSink(env.AudioDir)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitFailure
	}

	printer := console.NewPrinter(out)
	printer.Header("Deepgram Voice Agent + Cartesia Multilingual TTS Test Suite",
		fmt.Sprintf("%d scenario(s) | audio: %s", len(selected), env.AudioDir))

	if cfg.CheckVoice {
		checkVoice(ctx, printer, tts, env)
	}

	orchestrator := orchestration.NewOrchestrator(orchestration.Config{
		URL:       env.AgentURL,
		APIKey:    env.DeepgramAPIKey,
		Providers: agent.DefaultProviders(env.CartesiaVoiceID, tts.Endpoint()),
		Pacing:    suitePacing(),
	}, orchestration.WithAudioSink(sink))

	var entries []console.ReportEntry
	for i, s := range selected {
		printer.ScenarioBanner(s, i+1, len(selected))

		result, err := orchestrator.Run(ctx, s, nil, printer.SessionOptions(s, false)...)
		if result == nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return exitFailure
		}
		if err != nil {
			printer.Errorf("Session ended with error: %v", err)
		}
		entries = append(entries, console.ReportEntry{Result: result})

		if ctx.Err() != nil {
			break
		}
		if i < len(selected)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(cfg.Pause):
			}
		}
	}

	if cfg.Transcribe && ctx.Err() == nil {
		transcribeAudio(ctx, printer, env, cfg.ListenURL, entries)
	}

	meta := console.ReportMeta{
		Title:     reportTitle,
		VoiceID:   env.CartesiaVoiceID,
		TTSModel:  agent.DefaultSpeakModel,
		STTModel:  agent.DefaultListenModel,
		LLM:       agent.DefaultThinkModel,
		Timestamp: time.Now(),
	}
	printer.Report(meta, entries)

	if err := console.WriteResults(cfg.ResultsPath, meta, entries); err != nil {
		printer.Errorf("%v", err)
		return exitFailure
	}
	printer.Println(fmt.Sprintf("Results written to: %s", cfg.ResultsPath))
	printer.Println(fmt.Sprintf("Audio files saved in: %s", env.AudioDir))

	if ctx.Err() != nil {
		return exitInterrupted
	}
	for _, entry := range entries {
		if !entry.Result.Passed() {
			return exitFailure
		}
	}
	return exitOK
}

// checkVoice confirms the configured voice exists and synthesizes a short
// baseline directly, bypassing the agent.
func checkVoice(ctx context.Context, printer *console.Printer, tts *cartesia.Client, env config.Config) {
	voices, err := tts.ListVoices(ctx)
	if err != nil {
		printer.Errorf("Voice check failed: %v", err)
	} else {
		found := false
		for _, voice := range voices {
			if voice.ID == env.CartesiaVoiceID {
				printer.Println(fmt.Sprintf("Voice: %s (%s)", voice.Name, voice.ID))
				found = true
				break
			}
		}
		if !found {
			printer.Errorf("Voice %s not found among %d voices", env.CartesiaVoiceID, len(voices))
		}
	}

	audio, err := tts.Synthesize(ctx, baselineText, texttospeech.WithLanguage("es"))
	if err != nil {
		printer.Errorf("Baseline synthesis failed: %v", err)
		return
	}
	path := filepath.Join(env.AudioDir, baselineFileName)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		printer.Errorf("failed to save baseline audio: %v", err)
		return
	}
	printer.Println(fmt.Sprintf("Baseline synthesis: %d bytes saved to %s", len(audio), path))
}

// transcribeAudio listens to every saved response. The agent's own
// transcript is the text it meant to speak, not what was synthesized.
func transcribeAudio(ctx context.Context, printer *console.Printer, env config.Config, listenURL string, entries []console.ReportEntry) {
	var opts []deepgram.ClientOption
	if listenURL != "" {
		opts = append(opts, deepgram.WithURL(listenURL))
	}
	stt, err := deepgram.NewTranscriptionClient(env.DeepgramAPIKey, opts...)
	if err != nil {
		printer.Errorf("Audio check disabled: %v", err)
		return
	}

	printer.Println("Transcribing saved agent audio...")
	for i := range entries {
		result := entries[i].Result
		language := result.Scenario.SpeakLanguage
		if language == "" {
			language = audioCheckLanguage
		}

		transcripts := map[string]string{}
		for _, file := range result.AudioFiles {
			text, err := stt.TranscribeFile(ctx, file.Path, speechtotext.WithLanguage(language))
			if err != nil {
				printer.Errorf("Audio check of %s failed: %v", file.Name, err)
				continue
			}
			transcripts[file.Name] = text
		}
		entries[i].AudioTranscripts = transcripts
	}
}

func scenarioIDs(set []scenarios.Scenario) []string {
	ids := make([]string, len(set))
	for i, s := range set {
		ids[i] = s.ID
	}
	return ids
}

type envFiles []string

func (f *envFiles) String() string { return strings.Join(*f, ",") }

func (f *envFiles) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func parseArgs(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("agentsuite", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fileFlag := fs.String("scenarios", "", "YAML file with scenarios to run instead of the built-in suite")
	audioDirFlag := fs.String("audio-dir", "", "Directory for agent audio and results (env: AGENT_AUDIO_DIR, default: ./test_results)")
	resultsFlag := fs.String("results", "", "Path of the JSON results (default: <audio-dir>/results.json)")
	pauseFlag := fs.Duration("pause", defaultPause, "Pause between scenarios")
	transcribeFlag := fs.Bool("transcribe", false, "Transcribe saved agent audio with Deepgram to check what was spoken")
	checkVoiceFlag := fs.Bool("check-voice", false, "Check the Cartesia voice and synthesize a baseline sample directly")
	schemaFlag := fs.Bool("schema", false, "Print the JSON schema of scenario files and exit")
	listenURLFlag := fs.String("listen-url", "", "Deepgram listen endpoint used by --transcribe")
	cartesiaURLFlag := fs.String("cartesia-url", "", "Cartesia API base URL")
	var files envFiles
	fs.Var(&files, "env-file", "Env file to load before the environment (repeatable, default: .env)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: agentsuite [flags] [scenario-id-fragment...]")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Runs the multilingual test scenarios against the Deepgram Voice Agent and")
		fmt.Fprintln(fs.Output(), "prints a report. Arguments select scenarios whose id contains them.")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *pauseFlag < 0 {
		fmt.Fprintln(errOut, "pause must not be negative")
		return Config{}, fmt.Errorf("invalid pause %s", *pauseFlag)
	}

	return Config{
		Filters:      fs.Args(),
		ScenarioFile: *fileFlag,
		EnvFiles:     files,
		AudioDir:     *audioDirFlag,
		ResultsPath:  *resultsFlag,
		Pause:        *pauseFlag,
		Transcribe:   *transcribeFlag,
		CheckVoice:   *checkVoiceFlag,
		PrintSchema:  *schemaFlag,
		ListenURL:    *listenURLFlag,
		CartesiaURL:  *cartesiaURLFlag,
	}, nil
}
