package logger

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Kind identifies the type of event in a LogEntry.
type Kind string

const (
	KindSessionStart Kind = "session_start"
	KindPipeline     Kind = "pipeline"
	KindParseError   Kind = "parse_error"
)

// Entry field names.
const (
	fieldTimestamp = "timestamp_micros"
	fieldSessionID = "session_id"
	fieldKind      = "kind"
	fieldPayload   = "payload"
)

// LogEntry is one line of the event log.
type LogEntry struct {
	TimestampMicros int64
	SessionID       string
	Kind            Kind
	Payload         *structpb.Struct
}

// GetString returns a string payload field.
func (le *LogEntry) GetString(key string) string {
	return le.Payload.GetFields()[key].GetStringValue()
}

// GetInt returns a numeric payload field.
func (le *LogEntry) GetInt(key string) int {
	return int(le.Payload.GetFields()[key].GetNumberValue())
}

// GetList returns a list payload field.
func (le *LogEntry) GetList(key string) []*structpb.Value {
	return le.Payload.GetFields()[key].GetListValue().GetValues()
}

func (le *LogEntry) toProto() *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldTimestamp: structpb.NewNumberValue(float64(le.TimestampMicros)),
			fieldSessionID: structpb.NewStringValue(le.SessionID),
			fieldKind:      structpb.NewStringValue(string(le.Kind)),
			fieldPayload:   structpb.NewStructValue(le.Payload),
		},
	}
}

func entryFromProto(s *structpb.Struct) *LogEntry {
	fields := s.GetFields()
	return &LogEntry{
		TimestampMicros: int64(fields[fieldTimestamp].GetNumberValue()),
		SessionID:       fields[fieldSessionID].GetStringValue(),
		Kind:            Kind(fields[fieldKind].GetStringValue()),
		Payload:         fields[fieldPayload].GetStructValue(),
	}
}

// MarshalJSON implements json.Marshaler.
func (le *LogEntry) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(le.toProto())
}

// UnmarshalJSON implements json.Unmarshaler.
func (le *LogEntry) UnmarshalJSON(b []byte) error {
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return err
	}
	*le = *entryFromProto(&s)
	return nil
}
