package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-voiceagent/core"
	"github.com/koscakluka/ema-voiceagent/core/agent"
	"github.com/koscakluka/ema-voiceagent/core/audio"
	"github.com/koscakluka/ema-voiceagent/core/audio/miniaudio"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
	"github.com/koscakluka/ema-voiceagent/core/texttospeech/cartesia"
	"github.com/koscakluka/ema-voiceagent/internal/config"
	"github.com/koscakluka/ema-voiceagent/internal/console"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130

	defaultAudioDir = "./agent_audio_out"
	audioPrefix     = "demo"
)

var demoPacing = orchestration.DemoPacing

// playbackDrainTimeout bounds the wait for queued audio after a session.
var playbackDrainTimeout = 10 * time.Second

type Config struct {
	Scenario      string
	ScenarioFile  string
	EnvFiles      []string
	AudioDir      string
	Play          bool
	AwaitResponse time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cfg, err := parseArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
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

	set := scenarios.Demo()
	if cfg.ScenarioFile != "" {
		if set, err = scenarios.LoadFile(cfg.ScenarioFile); err != nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return exitUsage
		}
	}

	printer := console.NewPrinter(out)
	printer.Header("Deepgram Voice Agent + Cartesia Multilingual TTS Demo",
		"STT: Nova-3 | LLM: GPT-4o-mini | TTS: Cartesia Multilingual")

	var scenario scenarios.Scenario
	if cfg.Scenario != "" {
		scenario, err = scenarios.Find(set, cfg.Scenario)
	} else {
		scenario, err = console.SelectScenario(in, out, set)
	}
	if errors.Is(err, console.ErrCancelled) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v (available: %s)\n", err, strings.Join(scenarios.Keys(set), ", "))
		return exitUsage
	}

	tts, err := cartesia.NewClient(env.CartesiaAPIKey)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitUsage
	}
	sink, err := orchestration.NewFileSink(env.AudioDir)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitFailure
	}

	pacing := demoPacing()
	pacing.AwaitResponse = cfg.AwaitResponse
	orchestrator := orchestration.NewOrchestrator(orchestration.Config{
		URL:       env.AgentURL,
		APIKey:    env.DeepgramAPIKey,
		Providers: agent.DefaultProviders(env.CartesiaVoiceID, tts.Endpoint()),
		Pacing:    pacing,
	}, orchestration.WithAudioSink(sink))

	runOpts := append(printer.SessionOptions(scenario, scenario.Interactive()), orchestration.WithAudioPrefix(audioPrefix))

	var player *miniaudio.Player
	if cfg.Play {
		if player, err = miniaudio.NewPlayer(audio.GetOutputEncodingInfo()); err != nil {
			printer.Errorf("Playback disabled: %v", err)
		} else {
			defer player.Close()
			runOpts = append(runOpts, orchestration.WithAudioCallback(player.Play))
		}
	}

	var source orchestration.TurnSource
	if scenario.Interactive() {
		source = orchestration.InteractiveTurns(in,
			orchestration.WithPrompt(printer.Prompt),
			orchestration.WithInteractivePacing(pacing),
		)
	}

	printer.ScenarioBanner(scenario, 1, 1)
	printer.Println("Connecting to Deepgram Voice Agent...")

	result, runErr := orchestrator.Run(ctx, scenario, source, runOpts...)
	if result == nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", runErr)
		return exitFailure
	}
	if runErr != nil && !result.SettingsApplied && result.Fatal == nil {
		printer.Errorf("Connection failed: %v", runErr)
		return exitFailure
	}

	if player != nil {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), playbackDrainTimeout)
		_ = player.Drain(drainCtx)
		cancel()
	}

	printer.Summary(result)
	printer.Println(fmt.Sprintf("Done. Audio files saved in: %s", env.AudioDir))

	switch {
	case ctx.Err() != nil:
		return exitInterrupted
	case runErr != nil:
		return exitFailure
	}
	return exitOK
}

type envFiles []string

func (f *envFiles) String() string { return strings.Join(*f, ",") }

func (f *envFiles) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func parseArgs(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("agentdemo", flag.ContinueOnError)
	fs.SetOutput(errOut)
	scenarioFlag := fs.String("scenario", "", "Scenario key or id to run without the menu")
	fileFlag := fs.String("scenarios", "", "YAML file with scenarios to choose from instead of the built-in ones")
	audioDirFlag := fs.String("audio-dir", "", "Directory for agent audio (env: AGENT_AUDIO_DIR, default: ./agent_audio_out)")
	playFlag := fs.Bool("play", false, "Play the agent's audio on the default output device")
	awaitFlag := fs.Duration("await-response", 0, "Also wait up to this long for the agent to finish speaking before each scripted turn")
	var files envFiles
	fs.Var(&files, "env-file", "Env file to load before the environment (repeatable, default: .env)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: agentdemo [flags] [scenario]")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Runs one demo conversation with the Deepgram Voice Agent using Cartesia")
		fmt.Fprintln(fs.Output(), "for speech. Without a scenario a menu is shown.")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return Config{}, fmt.Errorf("at most one scenario can be given")
	}
	if *awaitFlag < 0 {
		fmt.Fprintln(errOut, "await-response must not be negative")
		return Config{}, fmt.Errorf("invalid await-response %s", *awaitFlag)
	}

	cfg := Config{
		Scenario:      strings.TrimSpace(*scenarioFlag),
		ScenarioFile:  *fileFlag,
		EnvFiles:      files,
		AudioDir:      *audioDirFlag,
		Play:          *playFlag,
		AwaitResponse: *awaitFlag,
	}
	if fs.NArg() == 1 {
		if cfg.Scenario != "" {
			fs.Usage()
			return Config{}, fmt.Errorf("scenario given twice")
		}
		cfg.Scenario = strings.TrimSpace(fs.Arg(0))
	}
	return cfg, nil
}
