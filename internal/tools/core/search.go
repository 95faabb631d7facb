package core

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"drover/internal/logging"
	"drover/internal/tools"
)

// GlobTool returns a tool for finding files matching a pattern.
func GlobTool() *tools.Tool {
	return &tools.Tool{
		Name:        "glob",
		Description: "Find files matching a glob pattern",
		Category:    tools.CategorySearch,
		Priority:    85,
		Execute:     executeGlob,
		Describe: func(args map[string]any) string {
			return fmt.Sprintf("Glob %s", tools.OptionalStringArg(args, "pattern", "?"))
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Glob pattern (e.g., '**/*.go', 'src/*.ts')",
				},
				"base_path": {
					Type:        "string",
					Description: "Base directory for search (default: current directory)",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results (default: 100)",
					Default:     100,
				},
			},
		},
	}
}

func executeGlob(ctx context.Context, args map[string]any) (tools.Output, error) {
	pattern, err := tools.StringArg(args, "pattern")
	if err != nil {
		return tools.Output{}, err
	}
	basePath := tools.OptionalStringArg(args, "base_path", ".")
	maxResults := tools.OptionalIntArg(args, "max_results", 100)

	logging.ToolsDebug("glob: pattern=%s, base=%s", pattern, basePath)

	var matches []string

	// Handle ** patterns (recursive)
	if strings.Contains(pattern, "**") {
		parts := strings.Split(pattern, "**")
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := ""
		if len(parts) > 1 {
			suffix = strings.TrimPrefix(parts[1], "/")
		}

		searchPath := basePath
		if prefix != "" {
			searchPath = filepath.Join(basePath, prefix)
		}

		walkErr := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip errors
			}
			if len(matches) >= maxResults {
				return filepath.SkipAll
			}
			if info.IsDir() {
				return nil
			}

			if suffix != "" {
				matched, _ := filepath.Match(suffix, info.Name())
				if !matched {
					relPath, _ := filepath.Rel(searchPath, path)
					matched, _ = filepath.Match(suffix, relPath)
				}
				if !matched {
					return nil
				}
			}
			relPath, _ := filepath.Rel(basePath, path)
			matches = append(matches, relPath)
			return nil
		})
		if walkErr != nil {
			return tools.Output{}, fmt.Errorf("failed to walk directory: %w", walkErr)
		}
	} else {
		fullPattern := filepath.Join(basePath, pattern)
		globMatches, err := filepath.Glob(fullPattern)
		if err != nil {
			return tools.Output{}, fmt.Errorf("invalid glob pattern: %w", err)
		}
		for i, m := range globMatches {
			if i >= maxResults {
				break
			}
			relPath, _ := filepath.Rel(basePath, m)
			matches = append(matches, relPath)
		}
	}

	logging.Tools("glob completed: %s (%d matches)", pattern, len(matches))

	if len(matches) == 0 {
		return tools.Output{Content: "No files found matching pattern: " + pattern}, nil
	}
	return tools.Output{Content: strings.Join(matches, "\n")}, nil
}

// GrepTool returns a tool for searching file contents.
func GrepTool() *tools.Tool {
	return &tools.Tool{
		Name:        "grep",
		Description: "Search for a regular expression in file contents",
		Category:    tools.CategorySearch,
		Priority:    85,
		Execute:     executeGrep,
		Describe: func(args map[string]any) string {
			return fmt.Sprintf("Grep %q", tools.OptionalStringArg(args, "pattern", "?"))
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Regular expression to search for",
				},
				"path": {
					Type:        "string",
					Description: "File or directory to search (default: current directory)",
				},
				"max_matches": {
					Type:        "integer",
					Description: "Maximum number of matches (default: 50)",
					Default:     50,
				},
			},
		},
	}
}

func executeGrep(ctx context.Context, args map[string]any) (tools.Output, error) {
	pattern, err := tools.StringArg(args, "pattern")
	if err != nil {
		return tools.Output{}, err
	}
	root := tools.OptionalStringArg(args, "path", ".")
	maxMatches := tools.OptionalIntArg(args, "max_matches", 50)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return tools.Output{}, fmt.Errorf("invalid pattern: %w", err)
	}

	logging.ToolsDebug("grep: pattern=%s, path=%s", pattern, root)

	var results []string

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if len(results) >= maxMatches {
			return filepath.SkipAll
		}
		if info.IsDir() {
			name := info.Name()
			if name != "." && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Size() > 2<<20 {
			return nil // skip large files
		}

		matches, err := searchFile(path, re, maxMatches-len(results))
		if err != nil {
			return nil
		}
		results = append(results, matches...)
		return nil
	})
	if walkErr != nil {
		return tools.Output{}, fmt.Errorf("failed to search: %w", walkErr)
	}

	logging.Tools("grep completed: %s (%d matches)", pattern, len(results))

	if len(results) == 0 {
		return tools.Output{Content: "No matches found for pattern: " + pattern}, nil
	}
	return tools.Output{Content: strings.Join(results, "\n")}, nil
}

func searchFile(path string, re *regexp.Regexp, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matches []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.ContainsRune(line, 0) {
			return matches, nil // binary file, stop
		}
		if re.MatchString(line) {
			matches = append(matches, fmt.Sprintf("%s:%d: %s", path, lineNo, strings.TrimSpace(line)))
			if len(matches) >= limit {
				return matches, nil
			}
		}
	}
	return matches, scanner.Err()
}
