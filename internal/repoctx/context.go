package repoctx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxContextSize caps the bundled blob handed to the model.
const maxContextSize = 2 * 1024 * 1024

// ignoreDirs are never descended into while bundling.
var ignoreDirs = map[string]struct{}{
	".git": {}, "__pycache__": {}, "node_modules": {}, "venv": {}, "env": {},
	".idea": {}, ".vscode": {}, "dist": {}, "build": {},
}

// allowedExtensions are the source/file types worth showing the model.
var allowedExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {}, ".html": {},
	".css": {}, ".java": {}, ".cpp": {}, ".md": {}, ".json": {}, ".sql": {},
	".yaml": {}, ".yml": {}, ".sh": {}, ".rb": {}, ".go": {}, ".rs": {},
	".php": {}, ".cs": {}, ".swift": {}, ".kt": {},
}

// ContextFile returns the per-session context blob path.
func ContextFile(sessionID string) string {
	return fmt.Sprintf("repo_context_%s.txt", sessionID)
}

// Build walks root, bundles every allowed text file into one delimited
// blob capped at maxContextSize, and writes it to the session's context
// file. Returns the number of files included and the blob path.
func Build(root, sessionID string) (int, string, error) {
	if _, err := os.Stat(root); err != nil {
		return 0, "", fmt.Errorf("path not found: %s", root)
	}

	var sb strings.Builder
	fileCount := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if _, skip := ignoreDirs[info.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := allowedExtensions[strings.ToLower(filepath.Ext(info.Name()))]; !ok {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		chunk := fmt.Sprintf("\n\n--- FILE: %s ---\n%s\n--- END FILE ---\n", info.Name(), content)
		// oversized chunks are dropped; smaller files later in the walk
		// can still use the remaining room
		if sb.Len()+len(chunk) > maxContextSize {
			return nil
		}
		sb.WriteString(chunk)
		fileCount++
		return nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("walk %s: %w", root, err)
	}

	ctxPath := ContextFile(sessionID)
	if err := os.WriteFile(ctxPath, []byte(sb.String()), 0o644); err != nil {
		return 0, "", fmt.Errorf("write context file: %w", err)
	}
	return fileCount, ctxPath, nil
}
