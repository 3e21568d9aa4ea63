package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExamplePipeline_String() {
	p := New(
		Stage{Args: []string{"cat"}, InputFile: "input.txt"},
		Command("grep", "needle"),
		Stage{Args: []string{"wc", "-l"}, OutputFile: "count.txt", AppendOutput: true},
	)

	fmt.Println(p.String())
	fmt.Println(p.Len())

	// Output: cat < input.txt | grep needle | wc -l >> count.txt
	// 3
}

func TestPipeline_Validate(t *testing.T) {
	cases := map[string]struct {
		pipeline *Pipeline
		want     error
	}{
		"nil":         {nil, ErrEmptyPipeline},
		"no stages":   {New(), ErrEmptyPipeline},
		"single":      {New(Command("ls")), nil},
		"empty stage": {New(Command("ls"), Stage{}), ErrEmptyStage},
		"redirect only": {
			New(Stage{OutputFile: "out.txt"}),
			ErrEmptyStage,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			err := tc.pipeline.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestStage_HasRedirect(t *testing.T) {
	assert.False(t, (&Stage{Args: []string{"ls"}}).HasRedirect())
	assert.True(t, (&Stage{Args: []string{"ls"}, InputFile: "a"}).HasRedirect())
	assert.True(t, (&Stage{Args: []string{"ls"}, OutputFile: "b"}).HasRedirect())
	assert.Equal(t, "", (&Stage{}).Name())
}
