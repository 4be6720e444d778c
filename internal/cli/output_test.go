package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Failure(map[string]int{"code": 404}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E002", "syntax error", []string{"a.cue:1:1"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E002", resp.Error.Code)
	assert.Equal(t, "syntax error", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

type renderable struct{ name string }

func (r renderable) RenderText(w io.Writer) { fmt.Fprintf(w, "rendered %s\n", r.name) }

func TestOutputFormatter_TextUsesRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(renderable{name: "x"}))
	assert.Equal(t, "rendered x\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success("plain"))
	assert.Equal(t, "plain\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("E005", "not found", "details here"))
	assert.Contains(t, buf.String(), "Error [E005]: not found")
	assert.Contains(t, buf.String(), "Details: details here")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "shown 2\n", errOut.String())

	noErr := &OutputFormatter{Writer: out, Verbose: true}
	noErr.VerboseLog("fallback")
	assert.Equal(t, "fallback\n", out.String())
}

func TestExitError(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	inner := errors.New("disk full")
	wrapped := WrapExitError(ExitCommandError, "write failed", inner)
	assert.Equal(t, "write failed: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", wrapped)))
}
