package logger

import (
	"time"
)

// Event is a payload that can be recorded.
type Event interface {
	Kind() Kind
	Payload() map[string]interface{}
}

// SessionStart is logged when a shell starts reading commands.
type SessionStart struct {
	User        string
	Interactive bool
	ConfigDir   string
}

func (*SessionStart) Kind() Kind { return KindSessionStart }

func (e *SessionStart) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user":        e.User,
		"interactive": e.Interactive,
		"config_dir":  e.ConfigDir,
	}
}

// StageOutcome is the result of one stage of a Pipeline event.
type StageOutcome struct {
	Command []string
	Status  int
	Builtin bool
	Error   string
}

// Pipeline is logged after a pipeline finishes.
type Pipeline struct {
	Line     string
	Stages   []StageOutcome
	Status   int
	Duration time.Duration
}

func (*Pipeline) Kind() Kind { return KindPipeline }

func (e *Pipeline) Payload() map[string]interface{} {
	stages := make([]interface{}, 0, len(e.Stages))
	for _, st := range e.Stages {
		stage := map[string]interface{}{
			"command": toList(st.Command),
			"status":  st.Status,
			"builtin": st.Builtin,
		}
		if st.Error != "" {
			stage["error"] = st.Error
		}
		stages = append(stages, stage)
	}

	return map[string]interface{}{
		"line":            e.Line,
		"stages":          stages,
		"status":          e.Status,
		"duration_micros": e.Duration.Microseconds(),
	}
}

// ParseError is logged when a line can't be turned into a pipeline.
type ParseError struct {
	Line  string
	Error string
}

func (*ParseError) Kind() Kind { return KindParseError }

func (e *ParseError) Payload() map[string]interface{} {
	return map[string]interface{}{
		"line":  e.Line,
		"error": e.Error,
	}
}

func toList(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

var (
	_ Event = (*SessionStart)(nil)
	_ Event = (*Pipeline)(nil)
	_ Event = (*ParseError)(nil)
)
