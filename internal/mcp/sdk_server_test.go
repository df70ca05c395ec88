package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// fakeAnalyzer upper-cases text and can be told to fail.
type fakeAnalyzer struct {
	err error
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return strings.ToUpper(text), nil
}

func (f *fakeAnalyzer) AnalyzeFile(_ context.Context, in, out string) error {
	if f.err != nil {
		return f.err
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	return os.WriteFile(out, []byte(strings.ToUpper(string(data))), 0o644)
}

func (f *fakeAnalyzer) Stats(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return "Words: 0\n", nil
}

func newAnalyzerServer(a Analyzer) *Server {
	s := NewServer("analyzer", "1.0.0")
	RegisterAnalyzerTools(s, a)

	return s
}

func TestServerMetadata(t *testing.T) {
	s := NewServer("demo", "1.2.3")

	require.Equal(t, "demo", s.Name())
	require.Equal(t, "1.2.3", s.Version())
	require.Empty(t, s.ListTools())
}

func TestRegisterAnalyzerTools_ListTools(t *testing.T) {
	tools := newAnalyzerServer(&fakeAnalyzer{}).ListTools()

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		require.NotEmpty(t, tool.Description)
	}

	require.Equal(t, []string{ToolAnalyzeFile, ToolAnalyzeText, ToolServerStats}, names)
}

func TestCallTool_AnalyzeText(t *testing.T) {
	s := newAnalyzerServer(&fakeAnalyzer{})

	result := s.CallTool(context.Background(), ToolAnalyzeText, map[string]any{"text": "hola"})
	require.False(t, result.IsError)
	require.Equal(t, "HOLA", ResultText(result))
}

func TestCallTool_AnalyzeTextMissingArgument(t *testing.T) {
	s := newAnalyzerServer(&fakeAnalyzer{})

	result := s.CallTool(context.Background(), ToolAnalyzeText, map[string]any{"txt": "hola"})
	require.True(t, result.IsError)
	require.Contains(t, ResultText(result), "text")
}

func TestCallTool_AnalyzerError(t *testing.T) {
	s := newAnalyzerServer(&fakeAnalyzer{err: errors.New("connect to localhost:50005: refused")})

	for _, name := range []string{ToolAnalyzeText, ToolServerStats} {
		result := s.CallTool(context.Background(), name, map[string]any{"text": "hola"})
		require.True(t, result.IsError, name)
		require.Contains(t, ResultText(result), "refused")
	}
}

func TestCallTool_AnalyzeFile(t *testing.T) {
	s := newAnalyzerServer(&fakeAnalyzer{})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("texto"), 0o644))

	result := s.CallTool(context.Background(), ToolAnalyzeFile, map[string]any{"input_path": in, "output_path": out})
	require.False(t, result.IsError, ResultText(result))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "TEXTO", string(data))

	result = s.CallTool(context.Background(), ToolAnalyzeFile, map[string]any{"input_path": in})
	require.True(t, result.IsError)
}

func TestCallTool_UnknownTool(t *testing.T) {
	result := newAnalyzerServer(&fakeAnalyzer{}).CallTool(context.Background(), "nope", nil)

	require.True(t, result.IsError)
	require.Equal(t, "Tool not found: nope", ResultText(result))
}

func TestServer_OverTransport(t *testing.T) {
	ctx := context.Background()
	s := newAnalyzerServer(&fakeAnalyzer{})

	serverTransport, clientTransport := mcpgo.NewInMemoryTransports()

	serverSession, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	listed, err := session.ListTools(ctx, &mcpgo.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, listed.Tools, 3)

	result, err := session.CallTool(ctx, &mcpgo.CallToolParams{
		Name:      ToolAnalyzeText,
		Arguments: map[string]any{"text": "buenos días"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "BUENOS DÍAS", ResultText(result))
}

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{"b": "int", "a": "[]string", "c": "bool"})

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"a", "b", "c"}, schema.Required)
	require.Equal(t, "integer", schema.Properties["b"].Type)
	require.Equal(t, "array", schema.Properties["a"].Type)
	require.Equal(t, "string", schema.Properties["a"].Items.Type)
	require.Equal(t, "boolean", schema.Properties["c"].Type)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{"text":"x"}`)}})
	require.NoError(t, err)
	require.Equal(t, "x", args["text"])

	_, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{"text":`)}})
	require.ErrorContains(t, err, "failed to unmarshal arguments")
}
