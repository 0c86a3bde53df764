package evaluation

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultSet []byte

// Case is one question with the reference answer it is judged against.
type Case struct {
	Question    string `yaml:"question"`
	GroundTruth string `yaml:"ground_truth"`
}

// Set is a named list of cases, usually about a single ingested document.
type Set struct {
	Document  string `yaml:"document"`
	Questions []Case `yaml:"questions"`
}

// DefaultSet returns the built-in question set.
func DefaultSet() Set {
	s, err := ParseSet(defaultSet)
	if err != nil {
		panic(fmt.Sprintf("evaluation: built-in question set: %v", err))
	}
	return s
}

// LoadSet reads a question set from a YAML file.
func LoadSet(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("evaluation: read %s: %w", path, err)
	}
	s, err := ParseSet(data)
	if err != nil {
		return Set{}, fmt.Errorf("evaluation: %s: %w", path, err)
	}
	return s, nil
}

// ParseSet decodes and validates a YAML question set. Every case needs both
// a question and a ground truth.
func ParseSet(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("parse question set: %w", err)
	}
	if len(s.Questions) == 0 {
		return Set{}, errors.New("question set is empty")
	}

	var errs []error
	for i := range s.Questions {
		c := &s.Questions[i]
		c.Question = strings.TrimSpace(c.Question)
		c.GroundTruth = strings.TrimSpace(c.GroundTruth)
		if c.Question == "" {
			errs = append(errs, fmt.Errorf("case %d: question is required", i+1))
		}
		if c.GroundTruth == "" {
			errs = append(errs, fmt.Errorf("case %d: ground_truth is required", i+1))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Set{}, err
	}
	return s, nil
}
