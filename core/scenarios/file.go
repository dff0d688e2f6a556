package scenarios

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// File is the on-disk format of custom scenario sets.
type File struct {
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios" jsonschema:"title=Scenarios,minItems=1"`
}

func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a YAML (or JSON) scenario set and validates every entry.
func Parse(data []byte) ([]Scenario, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenarios: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}

	var errs []error
	seen := map[string]bool{}
	for _, s := range file.Scenarios {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate scenario id %q", s.ID))
		}
		seen[s.ID] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return file.Scenarios, nil
}

// Schema renders the JSON schema of the scenario file format.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&File{})
	schema.Title = "Voice agent scenarios"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario schema: %w", err)
	}
	return data, nil
}
