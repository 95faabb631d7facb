package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"drover/internal/model"
	"drover/internal/tools"
)

func chunkWithParts(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestNormalizeChunk_Text(t *testing.T) {
	seq := 0
	events := normalizeChunk(chunkWithParts(&genai.Part{Text: "hello"}), &seq)

	require.Len(t, events, 1)
	assert.Equal(t, model.ContentEvent{Text: "hello"}, events[0])
}

func TestNormalizeChunk_FunctionCall(t *testing.T) {
	seq := 0
	events := normalizeChunk(chunkWithParts(&genai.Part{
		FunctionCall: &genai.FunctionCall{
			ID:   "fc-abc",
			Name: "run_command",
			Args: map[string]any{"command": "ls"},
		},
	}), &seq)

	require.Len(t, events, 1)
	req, ok := events[0].(model.ToolCallRequestEvent)
	require.True(t, ok)
	assert.Equal(t, "fc-abc", req.ID)
	assert.Equal(t, "run_command", req.Name)
	assert.Equal(t, "ls", req.Args["command"])
}

func TestNormalizeChunk_SynthesizesMissingIDs(t *testing.T) {
	seq := 0
	first := normalizeChunk(chunkWithParts(&genai.Part{
		FunctionCall: &genai.FunctionCall{Name: "glob"},
	}), &seq)
	second := normalizeChunk(chunkWithParts(&genai.Part{
		FunctionCall: &genai.FunctionCall{Name: "grep"},
	}), &seq)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	id1 := first[0].(model.ToolCallRequestEvent).ID
	id2 := second[0].(model.ToolCallRequestEvent).ID
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2, "synthesized IDs must be unique within a stream")
}

func TestNormalizeChunk_EmptyChunk(t *testing.T) {
	seq := 0
	assert.Empty(t, normalizeChunk(nil, &seq))
	assert.Empty(t, normalizeChunk(&genai.GenerateContentResponse{}, &seq))
}

func TestBuildContents_Roles(t *testing.T) {
	s := &Service{}
	history := []model.Message{
		{Role: model.RoleUser, Text: "list the files"},
		{Role: model.RoleAssistant, ToolName: "list_dir", ToolCallID: "c1", ToolArgs: map[string]any{"path": "."}},
		{Role: model.RoleTool, ToolName: "list_dir", ToolCallID: "c1", ToolResult: "a.go\nb.go"},
		{Role: model.RoleAssistant, Text: "Two files."},
	}
	input := model.Message{Role: model.RoleUser, Text: "thanks"}

	contents := s.buildContents(history, input)
	require.Len(t, contents, 5)

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "list_dir", contents[1].Parts[0].FunctionCall.Name)

	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "a.go\nb.go", contents[2].Parts[0].FunctionResponse.Response["output"])

	assert.Equal(t, "Two files.", contents[3].Parts[0].Text)
	assert.Equal(t, "thanks", contents[4].Parts[0].Text)
}

func TestBuildContents_ToolErrorMapsToErrorKey(t *testing.T) {
	s := &Service{}
	contents := s.buildContents(nil, model.Message{
		Role:       model.RoleTool,
		ToolName:   "run_command",
		ToolResult: "command not found",
		ToolErr:    true,
	})

	require.Len(t, contents, 1)
	resp := contents[0].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, "command not found", resp.Response["error"])
	assert.NotContains(t, resp.Response, "output")
}

func TestBuildToolDeclarations(t *testing.T) {
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(&tools.Tool{
		Name:        "glob",
		Description: "Find files by pattern",
		Execute: func(ctx context.Context, args map[string]any) (tools.Output, error) {
			return tools.Output{}, nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern":     {Type: "string", Description: "Glob pattern"},
				"max_results": {Type: "integer"},
			},
		},
	}))

	s := &Service{registry: registry}
	decls := s.buildToolDeclarations()
	require.Len(t, decls, 1)
	require.Len(t, decls[0].FunctionDeclarations, 1)

	fd := decls[0].FunctionDeclarations[0]
	assert.Equal(t, "glob", fd.Name)
	assert.Equal(t, genai.TypeObject, fd.Parameters.Type)
	assert.Equal(t, []string{"pattern"}, fd.Parameters.Required)
	assert.Equal(t, genai.TypeString, fd.Parameters.Properties["pattern"].Type)
	assert.Equal(t, genai.TypeInteger, fd.Parameters.Properties["max_results"].Type)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "gemini-2.5-pro", nil)
	require.Error(t, err)
}

func TestGenaiType(t *testing.T) {
	assert.Equal(t, genai.TypeString, genaiType("string"))
	assert.Equal(t, genai.TypeBoolean, genaiType("boolean"))
	assert.Equal(t, genai.TypeString, genaiType("mystery"))
}
