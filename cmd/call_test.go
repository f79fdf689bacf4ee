package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitNameAndArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantRest string
		wantErr  bool
	}{
		{name: "name only", input: "call time__now", wantName: "time__now", wantRest: ""},
		{name: "name and args", input: `call time__now {"tz":"UTC"}`, wantName: "time__now", wantRest: `{"tz":"UTC"}`},
		{name: "missing name", input: "call", wantErr: true},
		{name: "blank name", input: "call   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, rest, err := splitNameAndArgs(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantName, name)
			require.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestParseJSONArgs(t *testing.T) {
	args, err := parseJSONArgs("")
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = parseJSONArgs(`{"a":1,"b":"two"}`)
	require.NoError(t, err)
	require.Equal(t, float64(1), args["a"])
	require.Equal(t, "two", args["b"])

	_, err = parseJSONArgs("not json")
	require.Error(t, err)
}

func TestDispatchREPLLine_UnknownCommand(t *testing.T) {
	err := dispatchREPLLine(nil, nil, nil, "bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")
}
