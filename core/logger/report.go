package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry LogEntry
		if err := logEntry.UnmarshalJSON(rawEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Pipeline: PipelineReport{
			Failures: NewPathCounter("command", "status"),
		},
	}
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Session    SessionReport    `json:"session_report"`
	Pipeline   PipelineReport   `json:"pipeline_report"`
	ParseError ParseErrorReport `json:"parse_error_report"`
}

// Update adds an entry to the report.
func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch le.Kind {
	case KindSessionStart:
		r.Session.update(le)
	case KindPipeline:
		r.Pipeline.update(le)
	case KindParseError:
		r.ParseError.update(le)
	default:
		r.InvalidEntries.Increment(string(le.Kind))
	}
}

type SessionReport struct {
	Count       int        `json:"count"`
	Interactive int        `json:"interactive"`
	Users       StrCounter `json:"users"`
}

func (r *SessionReport) update(le *LogEntry) {
	r.Count++
	if le.Payload.GetFields()["interactive"].GetBoolValue() {
		r.Interactive++
	}
	r.Users.Increment(le.GetString("user"))
}

type PipelineReport struct {
	Count  int `json:"count"`
	Failed int `json:"failed"`
	// Name of the first word of every stage.
	CommandNames StrCounter `json:"command_names"`
	// Number of stages per pipeline.
	Lengths StrCounter `json:"lengths"`
	// Stages that exited non-zero keyed by command and status.
	Failures *PathCounter `json:"failures"`
}

func (r *PipelineReport) update(le *LogEntry) {
	r.Count++
	if le.GetInt("status") != 0 {
		r.Failed++
	}

	stages := le.GetList("stages")
	r.Lengths.Increment(strconv.Itoa(len(stages)))

	for _, st := range stages {
		fields := st.GetStructValue().GetFields()
		command := fields["command"].GetListValue().GetValues()
		if len(command) == 0 {
			continue
		}

		name := command[0].GetStringValue()
		r.CommandNames.Increment(name)

		if status := int(fields["status"].GetNumberValue()); status != 0 && r.Failures != nil {
			r.Failures.Increment(name, strconv.Itoa(status))
		}
	}
}

type ParseErrorReport struct {
	Errors StrCounter `json:"errors"`
}

func (r *ParseErrorReport) update(le *LogEntry) {
	r.Errors.Increment(le.GetString("error"))
}

// InteractionReport groups the commands run by each session.
type InteractionReport struct {
	// Map of sessionID -> interactions
	interactions map[string]*InteractiveSession
}

type InteractiveSession struct {
	User        string   `json:"user"`
	Interactive bool     `json:"interactive"`
	LogEntries  int      `json:"log_entries"`
	Commands    []string `json:"commands"`
	Failed      int      `json:"failed"`
}

func (i *InteractiveSession) Update(le *LogEntry) {
	i.LogEntries++

	switch le.Kind {
	case KindSessionStart:
		i.User = le.GetString("user")
		i.Interactive = le.Payload.GetFields()["interactive"].GetBoolValue()
	case KindPipeline:
		i.Commands = append(i.Commands, le.GetString("line"))
		if le.GetInt("status") != 0 {
			i.Failed++
		}
	case KindParseError:
		i.Commands = append(i.Commands, le.GetString("line"))
		i.Failed++
	}
}

func (i *InteractionReport) init() {
	if i.interactions == nil {
		i.interactions = make(map[string]*InteractiveSession)
	}
}

// MarshalJSON implements custom JSON marshaler.
func (i *InteractionReport) MarshalJSON() ([]byte, error) {
	i.init()

	return json.Marshal(i.interactions)
}

func (i *InteractionReport) Update(le *LogEntry) {
	i.init()

	sessionID := le.SessionID
	if sessionID == "" {
		return
	}
	report, ok := i.interactions[sessionID]
	if !ok {
		report = &InteractiveSession{}
		i.interactions[sessionID] = report
	}

	report.Update(le)
}

// Sessions returns the IDs of every session seen.
func (i *InteractionReport) Sessions() []string {
	var out []string
	for id := range i.interactions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Session returns the interactions of one session or nil.
func (i *InteractionReport) Session(id string) *InteractiveSession {
	return i.interactions[id]
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for a key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for a tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
