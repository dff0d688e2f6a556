package main

import (
	"context"
	"encoding/json"
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

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/koscakluka/ema-voiceagent/core/audio"
	"github.com/koscakluka/ema-voiceagent/core/audio/miniaudio"
	"github.com/koscakluka/ema-voiceagent/core/texttospeech"
	"github.com/koscakluka/ema-voiceagent/core/texttospeech/cartesia"
	"github.com/koscakluka/ema-voiceagent/internal/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var playbackDrainTimeout = 30 * time.Second

type voicesConfig struct {
	BaseURL  string
	EnvFiles []string
	JSON     bool
	Language string
}

type sayConfig struct {
	BaseURL  string
	EnvFiles []string
	Voice    string
	Model    string
	Language string
	Out      string
	Play     bool
	Text     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		printHelp(errOut)
		return exitUsage
	}

	switch args[0] {
	case "voices":
		return runVoices(ctx, args[1:], out, errOut)
	case "say":
		return runSay(ctx, args[1:], out, errOut)
	case "-h", "--help", "help":
		printHelp(out)
		return exitOK
	default:
		fmt.Fprintf(errOut, "unknown command %q\n\n", args[0])
		printHelp(errOut)
		return exitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: cartesia <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  voices   List the voices available to the account")
	fmt.Fprintln(w, "  say      Synthesize text directly, without the voice agent")
}

func newClient(baseURL string, envFiles []string, voiceID string, errOut io.Writer) (*cartesia.Client, config.Config, bool) {
	env, err := config.Load("", envFiles...)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return nil, env, false
	}
	if err := env.Require(config.EnvCartesiaAPIKey); err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return nil, env, false
	}

	if voiceID == "" {
		voiceID = env.CartesiaVoiceID
	}
	opts := []cartesia.ClientOption{cartesia.WithDefaultVoice(voiceID)}
	if baseURL != "" {
		opts = append(opts, cartesia.WithBaseURL(baseURL))
	}
	client, err := cartesia.NewClient(env.CartesiaAPIKey, opts...)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return nil, env, false
	}
	return client, env, true
}

func runVoices(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg, err := parseVoicesArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	client, _, ok := newClient(cfg.BaseURL, cfg.EnvFiles, "", errOut)
	if !ok {
		return exitUsage
	}

	voices, err := client.ListVoices(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitFailure
	}

	if cfg.Language != "" {
		filtered := voices[:0]
		for _, voice := range voices {
			if strings.EqualFold(voice.Language, cfg.Language) {
				filtered = append(filtered, voice)
			}
		}
		voices = filtered
	}

	if cfg.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(voices); err != nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	rows := make([][]string, len(voices))
	for i, voice := range voices {
		rows[i] = []string{voice.ID, voice.Name, voice.Language}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "LANGUAGE").
		Rows(rows...)
	fmt.Fprintln(out, t.String())
	return exitOK
}

func runSay(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg, err := parseSayArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	client, env, ok := newClient(cfg.BaseURL, cfg.EnvFiles, cfg.Voice, errOut)
	if !ok {
		return exitUsage
	}
	if cfg.Voice == "" && env.CartesiaVoiceID == "" {
		fmt.Fprintf(errOut, "ERROR: no voice given (use --voice or export %s)\n", config.EnvCartesiaVoiceID)
		return exitUsage
	}

	var opts []texttospeech.SynthesisOption
	if cfg.Model != "" {
		opts = append(opts, texttospeech.WithModel(cfg.Model))
	}
	if cfg.Language != "" {
		opts = append(opts, texttospeech.WithLanguage(cfg.Language))
	}

	speech, err := client.Synthesize(ctx, cfg.Text, opts...)
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return exitFailure
	}

	if cfg.Out != "" {
		if dir := filepath.Dir(cfg.Out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(errOut, "ERROR: failed to create output directory: %v\n", err)
				return exitFailure
			}
		}
		if err := os.WriteFile(cfg.Out, speech, 0o644); err != nil {
			fmt.Fprintf(errOut, "ERROR: failed to write audio: %v\n", err)
			return exitFailure
		}
	}

	encoding := audio.GetOutputEncodingInfo()
	fmt.Fprintf(out, "%d bytes (%s of %d Hz %s)", len(speech), encoding.Duration(len(speech)).Round(time.Millisecond), encoding.SampleRate, encoding.Format.Name())
	if cfg.Out != "" {
		fmt.Fprintf(out, " saved to %s", cfg.Out)
	}
	fmt.Fprintln(out)

	if cfg.Play {
		player, err := miniaudio.NewPlayer(encoding)
		if err != nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", err)
			return exitFailure
		}
		defer player.Close()

		player.Play(speech)
		drainCtx, cancel := context.WithTimeout(ctx, playbackDrainTimeout)
		defer cancel()
		if err := player.Drain(drainCtx); err != nil {
			fmt.Fprintf(errOut, "ERROR: playback interrupted: %v\n", err)
			return exitFailure
		}
	}
	return exitOK
}

type envFiles []string

func (f *envFiles) String() string { return strings.Join(*f, ",") }

func (f *envFiles) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func parseVoicesArgs(args []string, errOut io.Writer) (voicesConfig, error) {
	fs := flag.NewFlagSet("cartesia voices", flag.ContinueOnError)
	fs.SetOutput(errOut)
	baseURLFlag := fs.String("base-url", "", "Cartesia API base URL")
	jsonFlag := fs.Bool("json", false, "Print the voices as JSON")
	languageFlag := fs.String("language", "", "Only list voices of this language")
	var files envFiles
	fs.Var(&files, "env-file", "Env file to load before the environment (repeatable, default: .env)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: cartesia voices [flags]")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return voicesConfig{}, err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return voicesConfig{}, fmt.Errorf("unexpected arguments %v", fs.Args())
	}

	return voicesConfig{
		BaseURL:  *baseURLFlag,
		EnvFiles: files,
		JSON:     *jsonFlag,
		Language: *languageFlag,
	}, nil
}

func parseSayArgs(args []string, errOut io.Writer) (sayConfig, error) {
	fs := flag.NewFlagSet("cartesia say", flag.ContinueOnError)
	fs.SetOutput(errOut)
	baseURLFlag := fs.String("base-url", "", "Cartesia API base URL")
	voiceFlag := fs.String("voice", "", "Voice id (env: CARTESIA_VOICE_ID)")
	modelFlag := fs.String("model", cartesia.DefaultModelID, "Model id")
	languageFlag := fs.String("language", "", "Language hint, detected when empty")
	outFlag := fs.String("out", "", "Write the raw PCM to this file")
	playFlag := fs.Bool("play", false, "Play the audio on the default output device")
	var files envFiles
	fs.Var(&files, "env-file", "Env file to load before the environment (repeatable, default: .env)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: cartesia say [flags] <text>")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return sayConfig{}, err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fs.Usage()
		return sayConfig{}, fmt.Errorf("text required")
	}

	return sayConfig{
		BaseURL:  *baseURLFlag,
		EnvFiles: files,
		Voice:    *voiceFlag,
		Model:    *modelFlag,
		Language: *languageFlag,
		Out:      *outFlag,
		Play:     *playFlag,
		Text:     text,
	}, nil
}
