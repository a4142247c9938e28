package main

import (
	"context"
	"fmt"
	"path/filepath"
)

// unavailableLLM stands in when the Gemini client could not be built
// (missing API key). Every model-backed endpoint reports the same error.
type unavailableLLM struct {
	outputDir string
}

var errUnavailable = fmt.Errorf("GEMINI_API_KEY missing from environment")

func (unavailableLLM) UploadContext(context.Context, string, string) (string, error) {
	return "", errUnavailable
}

func (unavailableLLM) Analyze(context.Context, string) (string, error) {
	return "", errUnavailable
}

func (unavailableLLM) Refactor(context.Context, string, string) (string, string, error) {
	return "", "", errUnavailable
}

func (unavailableLLM) Chat(context.Context, string, string) (string, error) {
	return "", errUnavailable
}

func (u unavailableLLM) OutputPath(filename string) string {
	return filepath.Join(u.outputDir, filepath.Base(filename))
}
