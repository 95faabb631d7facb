// Package gemini adapts the Google Gemini API to the model.Service
// interface. All genai wire types stay inside this package.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"drover/internal/logging"
	"drover/internal/model"
	"drover/internal/tools"
)

// Service talks to the Gemini API with function calling enabled.
type Service struct {
	client   *genai.Client
	model    string
	registry *tools.Registry
}

// New creates a Gemini-backed model service. The registry's tools are
// declared to the model as callable functions.
func New(ctx context.Context, apiKey, modelName string, registry *tools.Registry) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Service{
		client:   client,
		model:    modelName,
		registry: registry,
	}, nil
}

// SendStream implements model.Service.
func (s *Service) SendStream(ctx context.Context, history []model.Message, input model.Message) (<-chan model.StreamEvent, <-chan error, error) {
	contents := s.buildContents(history, input)
	cfg := &genai.GenerateContentConfig{
		Tools: s.buildToolDeclarations(),
	}

	events := make(chan model.StreamEvent)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errc)

		callSeq := 0
		for chunk, err := range s.client.Models.GenerateContentStream(ctx, s.model, contents, cfg) {
			if err != nil {
				if ctx.Err() != nil {
					logging.ModelDebug("stream cancelled")
					return
				}
				logging.Model("stream error: %v", err)
				errc <- fmt.Errorf("model stream failed: %w", err)
				return
			}
			for _, ev := range normalizeChunk(chunk, &callSeq) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, errc, nil
}

// normalizeChunk flattens one wire response into normalized events.
func normalizeChunk(chunk *genai.GenerateContentResponse, callSeq *int) []model.StreamEvent {
	var out []model.StreamEvent
	if chunk == nil || len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
		return out
	}

	for _, part := range chunk.Candidates[0].Content.Parts {
		if part.Text != "" {
			out = append(out, model.ContentEvent{Text: part.Text})
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				*callSeq++
				id = fmt.Sprintf("call-%d", *callSeq)
			}
			out = append(out, model.ToolCallRequestEvent{
				ID:   id,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
	}
	return out
}

// buildContents converts the provider-neutral transcript to genai contents.
func (s *Service) buildContents(history []model.Message, input model.Message) []*genai.Content {
	msgs := append(append([]model.Message{}, history...), input)

	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))

		case model.RoleAssistant:
			if m.ToolName != "" {
				contents = append(contents, genai.NewContentFromFunctionCall(m.ToolName, m.ToolArgs, genai.RoleModel))
			} else if m.Text != "" {
				contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleModel))
			}

		case model.RoleTool:
			response := map[string]any{"output": m.ToolResult}
			if m.ToolErr {
				response = map[string]any{"error": m.ToolResult}
			}
			contents = append(contents, genai.NewContentFromFunctionResponse(m.ToolName, response, genai.RoleUser))
		}
	}
	return contents
}

// buildToolDeclarations exposes the registry to the model.
func (s *Service) buildToolDeclarations() []*genai.Tool {
	if s.registry == nil || s.registry.Count() == 0 {
		return nil
	}

	var decls []*genai.FunctionDeclaration
	for _, t := range s.registry.All() {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaFor(t),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func schemaFor(t *tools.Tool) *genai.Schema {
	props := make(map[string]*genai.Schema, len(t.Schema.Properties))
	for name, p := range t.Schema.Properties {
		props[name] = &genai.Schema{
			Type:        genaiType(p.Type),
			Description: p.Description,
		}
		if p.Items != nil {
			props[name].Items = &genai.Schema{Type: genaiType(p.Items.Type)}
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   t.Schema.Required,
	}
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
