package scenario

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Script is a sequence of cache operations loaded from YAML.
//
//	name: ttl example
//	ttl: 100ms
//	steps:
//	  - {op: get, name: k, expect: "k#1"}
//	  - {op: sleep, duration: 150ms}
//	  - {op: get, name: k, expect: "k#2"}
type Script struct {
	Name string `yaml:"name"`
	// TTL is the default policy of get steps, see cache.ParseTTL.
	TTL   string `yaml:"ttl"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation of a Script.
type Step struct {
	Op   string `yaml:"op"` // get, set, flush or sleep
	Name string `yaml:"name"`
	Args []any  `yaml:"args"`

	// get
	TTL         *string `yaml:"ttl"`
	Expect      *string `yaml:"expect"`
	Fail        bool    `yaml:"fail"`
	ExpectError bool    `yaml:"expect_error"`

	// set
	Value string `yaml:"value"`

	// flush
	All   bool `yaml:"all"`
	Exact bool `yaml:"exact"`

	// sleep
	Duration string `yaml:"duration"`
}

// Parse decodes a Script. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario: empty script")
		}
		return nil, errors.Wrap(err, "scenario: decode")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return nil, errors.Wrapf(err, "scenario: step %d", i+1)
		}
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(buf))
}

func (s Step) validate() error {
	switch s.Op {
	case "get", "set":
		if s.Name == "" {
			return errors.Newf("%s needs a name", s.Op)
		}
	case "flush":
		if s.All && s.Name != "" {
			return errors.New("flush takes either all or a name")
		}
	case "sleep":
		if s.Duration == "" {
			return errors.New("sleep needs a duration")
		}
	default:
		return errors.Newf("unknown op %q", s.Op)
	}
	return nil
}
