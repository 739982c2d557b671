package scenario

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentuity/go-memo/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() (*Runner, *bytes.Buffer, *ManualClock) {
	var out bytes.Buffer
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewRunner(&out, clock, logger.NewTestLogger()), &out, clock
}

func TestRunTestdata(t *testing.T) {
	for _, name := range []string{"ttl", "flush", "failure"} {
		t.Run(name, func(t *testing.T) {
			script, err := Load("testdata/" + name + ".yaml")
			require.NoError(t, err)
			runner, out, _ := newTestRunner()
			assert.NoError(t, runner.Run(context.Background(), script))
			assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), len(script.Steps))
		})
	}
}

func TestRunTTLOutput(t *testing.T) {
	script, err := Load("testdata/ttl.yaml")
	require.NoError(t, err)
	runner, out, clock := newTestRunner()
	start := clock.Now()
	require.NoError(t, runner.Run(context.Background(), script))

	assert.Equal(t, strings.Join([]string{
		"get counter [] -> counter#1 (computed)",
		"sleep 50ms",
		"get counter [] -> counter#1 (cached)",
		"sleep 100ms",
		"get counter [] -> counter#2 (computed)",
	}, "\n")+"\n", out.String())
	assert.Equal(t, 150*time.Millisecond, clock.Now().Sub(start))
}

func TestRunExpectationFailure(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {op: get, name: k, expect: "k#1"}
  - {op: get, name: k, expect: "k#2"}
`))
	require.NoError(t, err)
	runner, _, _ := newTestRunner()
	err = runner.Run(context.Background(), script)
	assert.ErrorIs(t, err, ErrExpectation)
	assert.Contains(t, err.Error(), "step 2")
}

func TestRunUnexpectedSuccess(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {op: get, name: k, expect_error: true}
`))
	require.NoError(t, err)
	runner, _, _ := newTestRunner()
	assert.ErrorIs(t, runner.Run(context.Background(), script), ErrExpectation)
}

func TestRunComputeFailure(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {op: get, name: k, fail: true}
`))
	require.NoError(t, err)
	runner, _, _ := newTestRunner()
	err = runner.Run(context.Background(), script)
	assert.ErrorIs(t, err, errScripted)
	n, _ := runner.Cache().Store().Len(context.Background())
	assert.Equal(t, 0, n)
}

func TestRunStructuredArgs(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {op: get, name: q, args: [{b: 2, a: 1}, [x, y]], expect: "q#1"}
  - {op: get, name: q, args: [{a: 1, b: 2}, [x, y]], expect: "q#1"}
  - {op: get, name: q, args: [[x, y], {a: 1, b: 2}], expect: "q#2"}
`))
	require.NoError(t, err)
	runner, _, _ := newTestRunner()
	assert.NoError(t, runner.Run(context.Background(), script))
}

func TestRunCancelled(t *testing.T) {
	script, err := Load("testdata/ttl.yaml")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, out, _ := newTestRunner()
	assert.ErrorIs(t, runner.Run(ctx, script), context.Canceled)
	assert.Empty(t, out.String())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", ``, "empty script"},
		{"unknown op", "steps:\n  - {op: evict, name: k}\n", `unknown op "evict"`},
		{"get without name", "steps:\n  - {op: get}\n", "get needs a name"},
		{"sleep without duration", "steps:\n  - {op: sleep}\n", "sleep needs a duration"},
		{"flush all and name", "steps:\n  - {op: flush, all: true, name: k}\n", "either all or a name"},
		{"unknown field", "steps:\n  - {op: get, name: k, colour: red}\n", "colour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunBadTTL(t *testing.T) {
	runner, _, _ := newTestRunner()
	err := runner.Run(context.Background(), &Script{TTL: "later", Steps: []Step{{Op: "get", Name: "k"}}})
	assert.Error(t, err)
}
