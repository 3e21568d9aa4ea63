// Package pipeline holds the parsed command graph handed to the engine: an
// ordered list of stages where each stage's output feeds the next stage's
// input unless a file redirection says otherwise.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPipeline is returned when a pipeline has no stages.
	ErrEmptyPipeline = errors.New("empty pipeline")
	// ErrEmptyStage is returned when a stage has no program name.
	ErrEmptyStage = errors.New("empty command")
)

// Stage is one command within a pipeline.
type Stage struct {
	// Args holds the argument vector, Args[0] is the program name.
	Args []string `json:"args"`

	// InputFile replaces the stage's standard input when non-empty, taking
	// precedence over any pipe wired in by the engine.
	InputFile string `json:"input_file,omitempty"`

	// OutputFile replaces the stage's standard output when non-empty, taking
	// precedence over any pipe wired in by the engine.
	OutputFile string `json:"output_file,omitempty"`

	// AppendOutput opens OutputFile for appending rather than truncating it.
	AppendOutput bool `json:"append_output,omitempty"`
}

// Name returns the program name of the stage.
func (s *Stage) Name() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}

// HasRedirect reports whether either standard stream is redirected to a file.
func (s *Stage) HasRedirect() bool {
	return s.InputFile != "" || s.OutputFile != ""
}

// String formats the stage roughly the way it was typed.
func (s *Stage) String() string {
	parts := append([]string{}, s.Args...)
	if s.InputFile != "" {
		parts = append(parts, "<", s.InputFile)
	}
	if s.OutputFile != "" {
		op := ">"
		if s.AppendOutput {
			op = ">>"
		}
		parts = append(parts, op, s.OutputFile)
	}
	return strings.Join(parts, " ")
}

// Pipeline is one parsed command line. Adjacent stages are connected by pipes.
type Pipeline struct {
	Stages []Stage `json:"stages"`
}

// New creates a pipeline from the given stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{Stages: stages}
}

// Command is a shorthand for a single stage with the given arguments.
func Command(name string, args ...string) Stage {
	return Stage{Args: append([]string{name}, args...)}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Stages)
}

// IsEmpty reports whether the pipeline has nothing to run.
func (p *Pipeline) IsEmpty() bool {
	return p.Len() == 0
}

// Validate checks the pipeline for structural errors.
func (p *Pipeline) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPipeline
	}
	for i := range p.Stages {
		if p.Stages[i].Name() == "" {
			return fmt.Errorf("stage %d: %w", i+1, ErrEmptyStage)
		}
	}
	return nil
}

// String formats the pipeline roughly the way it was typed.
func (p *Pipeline) String() string {
	var parts []string
	for i := range p.Stages {
		parts = append(parts, p.Stages[i].String())
	}
	return strings.Join(parts, " | ")
}
