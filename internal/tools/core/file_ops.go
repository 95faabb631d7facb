package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"drover/internal/logging"
	"drover/internal/tools"
)

// ReadFileTool returns a tool for reading file contents.
func ReadFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Category:    tools.CategoryFile,
		Priority:    90,
		Execute:     executeReadFile,
		Describe: func(args map[string]any) string {
			return fmt.Sprintf("Read %s", tools.OptionalStringArg(args, "path", "?"))
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to read",
				},
				"start_line": {
					Type:        "integer",
					Description: "Starting line number (1-indexed, optional)",
				},
				"end_line": {
					Type:        "integer",
					Description: "Ending line number (inclusive, optional)",
				},
			},
		},
	}
}

func executeReadFile(ctx context.Context, args map[string]any) (tools.Output, error) {
	path, err := tools.StringArg(args, "path")
	if err != nil {
		return tools.Output{}, err
	}

	logging.ToolsDebug("read_file: path=%s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return tools.Output{}, fmt.Errorf("failed to read file: %w", err)
	}

	result := string(content)

	startLine := tools.OptionalIntArg(args, "start_line", 0)
	endLine := tools.OptionalIntArg(args, "end_line", 0)

	if startLine > 0 || endLine > 0 {
		lines := strings.Split(result, "\n")
		if startLine <= 0 {
			startLine = 1
		}
		if endLine <= 0 || endLine > len(lines) {
			endLine = len(lines)
		}
		startLine-- // to 0-indexed
		if startLine > len(lines) {
			startLine = len(lines)
		}
		if startLine > endLine {
			startLine = endLine
		}
		result = strings.Join(lines[startLine:endLine], "\n")
	}

	logging.Tools("read_file completed: %s (%d bytes)", path, len(result))
	return tools.Output{Content: result}, nil
}

// WriteFileTool returns a tool for writing content to a file. Writes mutate
// the workspace, so every call asks for confirmation.
func WriteFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating it if necessary",
		Category:    tools.CategoryFile,
		Priority:    80,
		Execute:     executeWriteFile,
		Describe: func(args map[string]any) string {
			return fmt.Sprintf("Write %s", tools.OptionalStringArg(args, "path", "?"))
		},
		Confirm: func(args map[string]any) *tools.ConfirmationDetails {
			path := tools.OptionalStringArg(args, "path", "?")
			size := len(tools.OptionalStringArg(args, "content", ""))
			return &tools.ConfirmationDetails{
				Title:       "Write file",
				Description: fmt.Sprintf("Write %d bytes to %s", size, path),
			}
		},
		Schema: tools.ToolSchema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to write",
				},
				"content": {
					Type:        "string",
					Description: "The content to write",
				},
			},
		},
	}
}

func executeWriteFile(ctx context.Context, args map[string]any) (tools.Output, error) {
	path, err := tools.StringArg(args, "path")
	if err != nil {
		return tools.Output{}, err
	}
	content, err := tools.StringArg(args, "content")
	if err != nil {
		return tools.Output{}, err
	}

	logging.ToolsDebug("write_file: path=%s (%d bytes)", path, len(content))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return tools.Output{}, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return tools.Output{}, fmt.Errorf("failed to write file: %w", err)
	}

	logging.Tools("write_file completed: %s", path)
	return tools.Output{Content: fmt.Sprintf("Wrote %d bytes to %s", len(content), path)}, nil
}

// ListDirTool returns a tool for listing directory entries.
func ListDirTool() *tools.Tool {
	return &tools.Tool{
		Name:        "list_dir",
		Description: "List the entries of a directory",
		Category:    tools.CategoryFile,
		Priority:    70,
		Execute:     executeListDir,
		Describe: func(args map[string]any) string {
			return fmt.Sprintf("List %s", tools.OptionalStringArg(args, "path", "."))
		},
		Schema: tools.ToolSchema{
			Required: []string{},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The directory to list (default: current directory)",
				},
			},
		},
	}
}

func executeListDir(ctx context.Context, args map[string]any) (tools.Output, error) {
	path := tools.OptionalStringArg(args, "path", ".")

	entries, err := os.ReadDir(path)
	if err != nil {
		return tools.Output{}, fmt.Errorf("failed to list directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	logging.ToolsDebug("list_dir: %s (%d entries)", path, len(names))
	return tools.Output{Content: strings.Join(names, "\n")}, nil
}
