package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names exposed by RegisterAnalyzerTools.
const (
	ToolAnalyzeText = "analyze_text"
	ToolAnalyzeFile = "analyze_file"
	ToolServerStats = "server_stats"
)

// Analyzer is the part of the analyzer client the tools call.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (string, error)
	AnalyzeFile(ctx context.Context, inputPath, outputPath string) error
	Stats(ctx context.Context) (string, error)
}

// RegisterAnalyzerTools adds the analyzer tools to s.
func RegisterAnalyzerTools(s *Server, a Analyzer) {
	s.AddTool(
		NewTool(ToolAnalyzeText,
			"Run text through the analysis server and return its annotated output verbatim.",
			SimpleSchema(map[string]string{"text": "string"})),
		analyzeTextHandler(a),
	)

	s.AddTool(
		NewTool(ToolAnalyzeFile,
			"Analyze a UTF-8 text file on the server host and write the annotated output to another file, overwriting it.",
			SimpleSchema(map[string]string{"input_path": "string", "output_path": "string"})),
		analyzeFileHandler(a),
	)

	s.AddTool(
		NewTool(ToolServerStats,
			"Report the analysis server's word and sentence counters. Requires the message framing.",
			&jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}),
		statsHandler(a),
	)
}

func analyzeTextHandler(a Analyzer) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		text, ok := args["text"].(string)
		if !ok {
			return ErrorResult("missing string argument: text"), nil
		}

		out, err := a.AnalyzeText(ctx, text)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		return TextResult(out), nil
	}
}

func analyzeFileHandler(a Analyzer) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		in, _ := args["input_path"].(string)
		out, _ := args["output_path"].(string)

		if in == "" || out == "" {
			return ErrorResult("input_path and output_path are required"), nil
		}

		if err := a.AnalyzeFile(ctx, in, out); err != nil {
			return ErrorResult(err.Error()), nil
		}

		return TextResult(fmt.Sprintf("analyzed %s into %s", in, out)), nil
	}
}

func statsHandler(a Analyzer) mcp.ToolHandler {
	return func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := a.Stats(ctx)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		return TextResult(stats), nil
	}
}
