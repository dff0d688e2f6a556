package scenarios

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jinzhu/copier"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Turn is one scripted user message. Label describes the language mix and
// only matters for reporting.
type Turn struct {
	Label string `json:"label" yaml:"label" jsonschema:"title=Label,description=Short description of the turn shown next to it in reports"`
	Text  string `json:"text" yaml:"text" jsonschema:"title=Text,description=Message injected as the user,minLength=1"`
}

// Scenario describes the remote behavior wanted for one session. A nil
// Turns list means turns are typed in interactively.
type Scenario struct {
	ID          string `json:"id" yaml:"id" jsonschema:"title=ID,description=Unique identifier used in file names and selection,minLength=1"`
	Key         string `json:"key,omitempty" yaml:"key,omitempty" jsonschema:"description=Short menu key"`
	Name        string `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Subtitle    string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	AgentLanguage  string `json:"agent_language,omitempty" yaml:"agent_language,omitempty" jsonschema:"description=agent.language of the Settings message,example=multi,example=en"`
	ListenLanguage string `json:"listen_language,omitempty" yaml:"listen_language,omitempty" jsonschema:"description=Speech recognition language hint; omitted when empty"`
	SpeakLanguage  string `json:"speak_language,omitempty" yaml:"speak_language,omitempty" jsonschema:"description=TTS language hint; omitted to let the TTS provider detect it"`

	Prompt   string `json:"prompt" yaml:"prompt" jsonschema:"description=System instruction given to the language model,minLength=1"`
	Greeting string `json:"greeting,omitempty" yaml:"greeting,omitempty"`

	Turns []Turn `json:"turns,omitempty" yaml:"turns,omitempty" jsonschema:"description=Scripted turns; leave out for an interactive session"`
}

func (s Scenario) Interactive() bool { return s.Turns == nil }

// Title is the name shown to people, falling back to the ID.
func (s Scenario) Title() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Clone returns a deep copy so a running session never shares its scenario.
func (s Scenario) Clone() Scenario {
	var clone Scenario
	if err := copier.CopyWithOption(&clone, &s, copier.Option{DeepCopy: true}); err != nil {
		logger.Error("failed to copy scenario", "scenario", s.ID, "error", err)
		clone = s
		clone.Turns = slices.Clone(s.Turns)
	}

	// Interactive() depends on Turns staying nil, which copier does not keep.
	switch {
	case s.Turns == nil:
		clone.Turns = nil
	case clone.Turns == nil:
		clone.Turns = []Turn{}
	}
	return clone
}

func (s Scenario) Validate() error {
	var errs []error
	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, fmt.Errorf("id is required"))
	}
	if strings.TrimSpace(s.Prompt) == "" {
		errs = append(errs, fmt.Errorf("scenario %q: prompt is required", s.ID))
	}
	for i, turn := range s.Turns {
		if strings.TrimSpace(turn.Text) == "" {
			errs = append(errs, fmt.Errorf("scenario %q: turn %d has no text", s.ID, i+1))
		}
	}
	return errors.Join(errs...)
}

// Find looks a scenario up by menu key or ID.
func Find(set []Scenario, key string) (Scenario, error) {
	key = strings.TrimSpace(key)
	for _, s := range set {
		if (s.Key != "" && s.Key == key) || s.ID == key {
			return s.Clone(), nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, key)
}

// Match selects every scenario whose ID contains one of the given
// fragments, keeping the set order. No fragments selects everything.
func Match(set []Scenario, fragments ...string) []Scenario {
	if len(fragments) == 0 {
		return slices.Clone(set)
	}

	var matched []Scenario
	for _, s := range set {
		if slices.ContainsFunc(fragments, func(fragment string) bool {
			return fragment != "" && strings.Contains(s.ID, fragment)
		}) {
			matched = append(matched, s)
		}
	}
	return matched
}

// Keys lists menu keys, or IDs for scenarios without a key.
func Keys(set []Scenario) []string {
	keys := make([]string, 0, len(set))
	for _, s := range set {
		if s.Key != "" {
			keys = append(keys, s.Key)
		} else {
			keys = append(keys, s.ID)
		}
	}
	return keys
}
