package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Model names per task. Analysis and chat run on the fast model,
// refactoring on the stronger one.
const (
	flashModel = "gemini-2.5-flash"
	proModel   = "gemini-2.5-pro"
)

const analyzePrompt = "Analyze this codebase. Identify ONE specific file that is messy or needs documentation. Explain why using Markdown."

// saveToolName is the function the model calls to persist generated code.
const saveToolName = "save_code_tool"

// Client wraps the Gemini API for the repo-analysis backend.
type Client struct {
	genai     *genai.Client
	outputDir string

	// pollDelay is the wait between upload-state polls; shortened in tests.
	pollDelay time.Duration
}

// NewClient connects to the Gemini API. An empty API key fails here,
// at first use of the dependency.
func NewClient(ctx context.Context, apiKey, outputDir string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY missing from environment")
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{genai: gc, outputDir: outputDir, pollDelay: time.Second}, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.genai.Close()
}

// UploadContext uploads the context blob and waits for the service to
// finish processing it. Returns the remote file name to reference later.
func (c *Client) UploadContext(ctx context.Context, path, displayName string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open context file: %w", err)
	}
	defer f.Close()

	file, err := c.genai.UploadFile(ctx, "", f, &genai.UploadFileOptions{DisplayName: displayName})
	if err != nil {
		return "", fmt.Errorf("upload context: %w", err)
	}
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollDelay):
		}
		file, err = c.genai.GetFile(ctx, file.Name)
		if err != nil {
			return "", fmt.Errorf("poll uploaded file: %w", err)
		}
	}
	return file.Name, nil
}

// Analyze asks the fast model to pick one file worth fixing.
func (c *Client) Analyze(ctx context.Context, fileName string) (string, error) {
	fd, err := c.fileData(ctx, fileName)
	if err != nil {
		return "", err
	}
	model := c.model(flashModel)

	resp, err := model.GenerateContent(ctx, fd, genai.Text(analyzePrompt))
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	return textOf(resp), nil
}

// Refactor asks the strong model to rewrite the file singled out by a
// prior analysis. Tool mode ANY forces a save_code_tool call; every save
// call is executed into the output dir. Returns the saved file name, or
// "" with the model's text when no save call fired.
func (c *Client) Refactor(ctx context.Context, fileName, analysis string) (string, string, error) {
	fd, err := c.fileData(ctx, fileName)
	if err != nil {
		return "", "", err
	}
	model := c.model(proModel)
	model.Tools = []*genai.Tool{saveTool()}
	model.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAny},
	}

	prompt := fmt.Sprintf("Based on this analysis: %s. Refactor that specific file completely. Use '%s' to save it.", analysis, saveToolName)
	resp, err := model.GenerateContent(ctx, fd, genai.Text(prompt))
	if err != nil {
		return "", "", fmt.Errorf("refactor: %w", err)
	}

	saved := ""
	for _, call := range saveCalls(resp) {
		if err := c.SaveCode(call.filename, call.content); err != nil {
			return "", "", err
		}
		saved = call.filename
	}
	return saved, textOf(resp), nil
}

// Chat answers a user turn with the session's accumulated context.
// Tool mode AUTO lets the model save code when it decides to; a notice is
// appended to the reply for each executed save.
func (c *Client) Chat(ctx context.Context, fileName, systemContext string) (string, error) {
	model := c.model(flashModel)
	model.Tools = []*genai.Tool{saveTool()}
	model.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
	}

	parts := []genai.Part{}
	if fileName != "" {
		if fd, err := c.fileData(ctx, fileName); err == nil {
			parts = append(parts, fd)
		}
	}
	parts = append(parts, genai.Text(systemContext))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	reply := textOf(resp)
	for _, call := range saveCalls(resp) {
		if err := c.SaveCode(call.filename, call.content); err != nil {
			log.Printf("[llm] save from chat failed: %v", err)
			continue
		}
		reply += fmt.Sprintf("\n\n[Tool Used] Saved changes to %s.", call.filename)
	}
	return reply, nil
}

// SaveCode writes generated code into the output dir. The filename is
// reduced to its base name so tool calls cannot escape the directory.
func (c *Client) SaveCode(filename, content string) error {
	safe := filepath.Base(filename)
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	path := filepath.Join(c.outputDir, safe)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", safe, err)
	}
	log.Printf("[llm] saved %s", safe)
	return nil
}

// OutputPath resolves a download request to a file inside the output dir.
func (c *Client) OutputPath(filename string) string {
	return filepath.Join(c.outputDir, filepath.Base(filename))
}

func (c *Client) model(name string) *genai.GenerativeModel {
	m := c.genai.GenerativeModel(name)
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}
	return m
}

func (c *Client) fileData(ctx context.Context, fileName string) (genai.FileData, error) {
	file, err := c.genai.GetFile(ctx, fileName)
	if err != nil {
		return genai.FileData{}, fmt.Errorf("get file %s: %w", fileName, err)
	}
	return genai.FileData{MIMEType: file.MIMEType, URI: file.URI}, nil
}

func saveTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        saveToolName,
			Description: "Save code to file.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"filename": {Type: genai.TypeString},
					"content":  {Type: genai.TypeString},
				},
				Required: []string{"filename", "content"},
			},
		}},
	}
}

type saveCall struct {
	filename string
	content  string
}

// saveCalls extracts executed save_code_tool calls from a response.
func saveCalls(resp *genai.GenerateContentResponse) []saveCall {
	var calls []saveCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			fc, ok := part.(genai.FunctionCall)
			if !ok || fc.Name != saveToolName {
				continue
			}
			filename, _ := fc.Args["filename"].(string)
			content, _ := fc.Args["content"].(string)
			if filename == "" {
				continue
			}
			calls = append(calls, saveCall{filename: filename, content: content})
		}
	}
	return calls
}

// textOf concatenates the text parts of the first candidate.
func textOf(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
