package build

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/buildnotify/pkg/errors"
)

// ChangeEntry is one change-set entry of a build.
type ChangeEntry struct {
	Author string `json:"author" yaml:"author"`
	Msg    string `json:"msg,omitempty" yaml:"msg,omitempty"`
}

// Event is a self-contained build-completion document. It is what the CLI
// reads from disk and what the HTTP intake accepts.
type Event struct {
	Project      string        `json:"project" yaml:"project"`
	Build        string        `json:"build" yaml:"build"`
	Status       Result        `json:"result" yaml:"result"`
	Previous     *Result       `json:"previous_result,omitempty" yaml:"previous_result,omitempty"`
	ArtifactList []Artifact    `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	CulpritIDs   []string      `json:"culprits,omitempty" yaml:"culprits,omitempty"`
	ChangeSet    []ChangeEntry `json:"change_set,omitempty" yaml:"change_set,omitempty"`
	RelativeURL  string        `json:"url" yaml:"url"`
}

var _ Record = (*Event)(nil)

func (e *Event) ProjectName() string { return e.Project }
func (e *Event) DisplayName() string { return e.Build }
func (e *Event) Result() Result      { return e.Status }
func (e *Event) Artifacts() []Artifact {
	return e.ArtifactList
}
func (e *Event) Culprits() []string { return e.CulpritIDs }
func (e *Event) URL() string        { return e.RelativeURL }

func (e *Event) PreviousResult() (Result, bool) {
	if e.Previous == nil {
		return ResultNone, false
	}
	return *e.Previous, true
}

func (e *Event) ChangeSetAuthors() []string {
	authors := make([]string, 0, len(e.ChangeSet))
	for _, c := range e.ChangeSet {
		authors = append(authors, c.Author)
	}
	return authors
}

// UnmarshalJSON accepts results in any case and "NONE".
func (r *Result) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseResult(s)
	return nil
}

// UnmarshalYAML accepts results in any case and "NONE".
func (r *Result) UnmarshalYAML(value *yaml.Node) error {
	*r = ParseResult(value.Value)
	return nil
}

// DecodeEvent reads a JSON build event.
func DecodeEvent(r io.Reader) (*Event, error) {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEvent, "decode build event")
	}
	if ev.Project == "" && ev.Build == "" {
		return nil, errors.New(errors.ErrInvalidEvent, "build event has neither project nor build name")
	}
	return &ev, nil
}

// DecodeEventYAML reads a YAML build event.
func DecodeEventYAML(r io.Reader) (*Event, error) {
	var ev Event
	if err := yaml.NewDecoder(r).Decode(&ev); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidEvent, "decode build event")
	}
	if ev.Project == "" && ev.Build == "" {
		return nil, errors.New(errors.ErrInvalidEvent, "build event has neither project nor build name")
	}
	return &ev, nil
}
