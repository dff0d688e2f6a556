// Package config resolves credentials and endpoints from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-voiceagent/core/agent"
)

const (
	EnvDeepgramAPIKey  = "DEEPGRAM_API_KEY"
	EnvCartesiaAPIKey  = "CARTESIA_API_KEY"
	EnvCartesiaVoiceID = "CARTESIA_VOICE_ID"
	EnvAgentURL        = "AGENT_URL"
	EnvAudioDir        = "AGENT_AUDIO_DIR"
)

var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	DeepgramAPIKey  string
	CartesiaAPIKey  string
	CartesiaVoiceID string

	AgentURL string
	AudioDir string
}

// Load reads the given .env files, defaulting to ./.env, and then the
// process environment. Variables already set in the environment win over
// the files. Missing files are ignored.
func Load(defaultAudioDir string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return FromEnv(os.LookupEnv, defaultAudioDir), nil
}

func FromEnv(lookup func(string) (string, bool), defaultAudioDir string) Config {
	get := func(name string) string {
		value, _ := lookup(name)
		return strings.TrimSpace(value)
	}

	c := Config{
		DeepgramAPIKey:  get(EnvDeepgramAPIKey),
		CartesiaAPIKey:  get(EnvCartesiaAPIKey),
		CartesiaVoiceID: get(EnvCartesiaVoiceID),
		AgentURL:        get(EnvAgentURL),
		AudioDir:        get(EnvAudioDir),
	}
	if c.AgentURL == "" {
		c.AgentURL = agent.DefaultURL
	}
	if c.AudioDir == "" {
		c.AudioDir = defaultAudioDir
	}
	return c
}

// Require reports every listed variable that has no value.
func (c Config) Require(names ...string) error {
	values := map[string]string{
		EnvDeepgramAPIKey:  c.DeepgramAPIKey,
		EnvCartesiaAPIKey:  c.CartesiaAPIKey,
		EnvCartesiaVoiceID: c.CartesiaVoiceID,
		EnvAgentURL:        c.AgentURL,
		EnvAudioDir:        c.AudioDir,
	}

	var errs []error
	for _, name := range names {
		if values[name] == "" {
			errs = append(errs, fmt.Errorf("%w: %s is not set (export %s=\"your-value\")", ErrMissingCredential, name, name))
		}
	}
	return errors.Join(errs...)
}

// RequireAgent checks everything a voice agent session needs.
func (c Config) RequireAgent() error {
	return c.Require(EnvDeepgramAPIKey, EnvCartesiaAPIKey, EnvCartesiaVoiceID)
}
