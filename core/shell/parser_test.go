package shell

import (
	"fmt"
	"testing"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleParse() {
	p, err := Parse(`cat <input.txt | grep "needle in" | wc -l >> count.txt`)
	if err != nil {
		panic(err)
	}

	for _, st := range p.Stages {
		fmt.Printf("%q in=%q out=%q append=%v\n", st.Args, st.InputFile, st.OutputFile, st.AppendOutput)
	}

	// Output: ["cat"] in="input.txt" out="" append=false
	// ["grep" "needle in"] in="" out="" append=false
	// ["wc" "-l"] in="" out="count.txt" append=true
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line    string
		want    []pipeline.Stage
		wantErr error
	}{
		"blank": {
			line: "   ",
		},
		"single": {
			line: "ls -l /tmp",
			want: []pipeline.Stage{{Args: []string{"ls", "-l", "/tmp"}}},
		},
		"quoted args": {
			line: `echo 'a b' "c d" e\ f`,
			want: []pipeline.Stage{{Args: []string{"echo", "a b", "c d", "e f"}}},
		},
		"separate redirects": {
			line: "sort < in > out",
			want: []pipeline.Stage{{Args: []string{"sort"}, InputFile: "in", OutputFile: "out"}},
		},
		"attached redirects": {
			line: "sort <in >>out",
			want: []pipeline.Stage{{Args: []string{"sort"}, InputFile: "in", OutputFile: "out", AppendOutput: true}},
		},
		"last redirect wins": {
			line: "echo hi >> a > b",
			want: []pipeline.Stage{{Args: []string{"echo", "hi"}, OutputFile: "b"}},
		},
		"redirect before command": {
			line: "< in cat",
			want: []pipeline.Stage{{Args: []string{"cat"}, InputFile: "in"}},
		},
		"pipeline": {
			line: "cat input.txt | grep needle",
			want: []pipeline.Stage{
				{Args: []string{"cat", "input.txt"}},
				{Args: []string{"grep", "needle"}},
			},
		},
		"leading pipe": {
			line:    "| wc",
			wantErr: ErrEmptyStage,
		},
		"trailing pipe": {
			line:    "ls |",
			wantErr: ErrEmptyStage,
		},
		"double pipe": {
			line:    "ls | | wc",
			wantErr: ErrEmptyStage,
		},
		"only redirect": {
			line:    "> out",
			wantErr: ErrEmptyStage,
		},
		"missing target": {
			line:    "echo hi >",
			wantErr: ErrMissingRedirectTarget,
		},
		"operator as target": {
			line:    "cat < | wc",
			wantErr: ErrMissingRedirectTarget,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p, err := Parse(tc.line)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got error %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Stages)
		})
	}
}

func TestParse_unterminatedQuote(t *testing.T) {
	_, err := Parse(`echo "oops`)
	assert.Error(t, err)
}

func TestParse_errorMessages(t *testing.T) {
	_, err := Parse("ls |")
	assert.EqualError(t, err, "|: empty command")

	_, err = Parse("cat <")
	assert.EqualError(t, err, "<: missing redirection target")
}
