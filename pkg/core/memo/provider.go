package memo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"google.golang.org/genai"
)

// Provider is the interface for all memo-generating LLM backends.
type Provider interface {
	Name() string
	GenerateResponse(ctx context.Context, prompt string) (string, error)
	// RegenerateCommand returns the shell command (or instruction) a user
	// can run by hand against the persisted prompt file.
	RegenerateCommand(promptPath string) string
}

// OllamaProvider shells out to a local `ollama run <model>` process with
// the prompt on stdin.
type OllamaProvider struct {
	Model string // e.g. "llama3:latest"
}

var _ Provider = (*OllamaProvider)(nil)

func (p *OllamaProvider) Name() string { return "ollama/" + p.Model }

func (p *OllamaProvider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, "ollama", "run", p.Model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ollama run %s: %w: %s", p.Model, err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", fmt.Errorf("ollama run %s: empty output: %s", p.Model, strings.TrimSpace(stderr.String()))
	}
	return text, nil
}

func (p *OllamaProvider) RegenerateCommand(promptPath string) string {
	return fmt.Sprintf("ollama run %s < %s", p.Model, promptPath)
}

// GeminiProvider calls the Gemini API through the official GenAI SDK.
type GeminiProvider struct {
	Model string // e.g. "gemini-2.0-flash-exp"
}

var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) Name() string { return "gemini/" + p.model() }

func (p *GeminiProvider) model() string {
	if p.Model == "" {
		return "gemini-2.0-flash-exp"
	}
	return p.Model
}

func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	result, err := client.Models.GenerateContent(ctx, p.model(), genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func (p *GeminiProvider) RegenerateCommand(promptPath string) string {
	return fmt.Sprintf("re-run the pipeline with GEMINI_API_KEY set; the prompt is saved at %s", promptPath)
}
