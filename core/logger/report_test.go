package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	recordSession(t, NewJsonLinesLogRecorder(&buf))

	report := NewReport()
	require.NoError(t, ReadJSONLinesLog(&buf, report.Update))

	assert.Equal(t, 5, report.LogEntries)
	assert.Equal(t, 1, report.Session.Count)
	assert.Equal(t, 1, report.Session.Interactive)
	assert.Equal(t, 1, report.Session.Users.Get("alice"))

	assert.Equal(t, 3, report.Pipeline.Count)
	assert.Equal(t, 2, report.Pipeline.Failed)
	assert.Equal(t, 1, report.Pipeline.Lengths.Get("2"))
	assert.Equal(t, 2, report.Pipeline.Lengths.Get("1"))
	assert.Equal(t, 1, report.Pipeline.CommandNames.Get("grep"))
	assert.Equal(t, 1, report.Pipeline.Failures.Get("grep", "1"))
	assert.Equal(t, 1, report.Pipeline.Failures.Get("nope", "127"))
	assert.Zero(t, report.Pipeline.Failures.Get("cat", "0"))

	assert.Equal(t, 1, report.ParseError.Errors.Get("empty command"))

	_, err := json.Marshal(report)
	assert.NoError(t, err)
}

func TestReport_unknownKind(t *testing.T) {
	report := NewReport()
	report.Update(&LogEntry{Kind: "mystery"})

	assert.Equal(t, 1, report.LogEntries)
	assert.Equal(t, 1, report.InvalidEntries.Get("mystery"))
}

func TestInteractionReport(t *testing.T) {
	var buf bytes.Buffer
	sess := recordSession(t, NewJsonLinesLogRecorder(&buf))

	var report InteractionReport
	require.NoError(t, ReadJSONLinesLog(&buf, report.Update))
	report.Update(&LogEntry{Kind: KindPipeline})

	assert.Equal(t, []string{sess.SessionID()}, report.Sessions())

	got := report.Session(sess.SessionID())
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.User)
	assert.True(t, got.Interactive)
	assert.Equal(t, 5, got.LogEntries)
	assert.Equal(t, []string{"cat notes.txt | grep todo", "nope", "cd /", "ls |"}, got.Commands)
	assert.Equal(t, 3, got.Failed)
}

func ExamplePathCounter() {
	ctr := NewPathCounter("command", "status")
	ctr.Increment("grep", "1")
	ctr.Increment("ls", "2")
	ctr.Increment("ls", "2")

	out, _ := json.Marshal(ctr)
	fmt.Println(string(out))
	// Output: [{"count":2,"event":{"command":"ls","status":"2"}},{"count":1,"event":{"command":"grep","status":"1"}}]
}

func ExampleStrCounter() {
	var ctr StrCounter
	ctr.Increment("cat")
	ctr.Increment("cat")
	ctr.Increment("wc")

	out, _ := json.Marshal(ctr)
	fmt.Println(string(out))
	// Output: {"cat":2,"wc":1}
}

func TestPathCounter_wrongColumns(t *testing.T) {
	ctr := NewPathCounter("a", "b")
	assert.Panics(t, func() { ctr.Increment("only-one") })
}
