package memo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Generator persists the prompt, runs the provider, and writes the memo.
type Generator struct {
	Provider   Provider
	PromptPath string
	MemoPath   string
	Log        *logrus.Logger
}

// Generate writes the prompt file first, then asks the provider for the
// memo. A provider failure degrades to a fallback memo pointing at the
// saved prompt; only the inability to write files is an error. The memo
// path is returned in either case, with ok reporting whether the provider
// produced the text.
func (g *Generator) Generate(ctx context.Context, prompt string) (path string, ok bool, err error) {
	if err := os.WriteFile(g.PromptPath, []byte(prompt), 0o644); err != nil {
		return "", false, fmt.Errorf("write prompt: %w", err)
	}

	text, genErr := g.Provider.GenerateResponse(ctx, prompt)
	if genErr != nil {
		if g.Log != nil {
			g.Log.WithError(genErr).WithField("provider", g.Provider.Name()).
				Warn("memo generation failed, writing fallback memo")
		}
		if err := os.WriteFile(g.MemoPath, []byte(g.fallbackMemo()), 0o644); err != nil {
			return "", false, fmt.Errorf("write fallback memo: %w", err)
		}
		return g.MemoPath, false, nil
	}

	if err := os.WriteFile(g.MemoPath, []byte(text), 0o644); err != nil {
		return "", false, fmt.Errorf("write memo: %w", err)
	}
	if err := g.renderHTML(text); err != nil {
		return "", false, err
	}
	return g.MemoPath, true, nil
}

func (g *Generator) fallbackMemo() string {
	return fmt.Sprintf(`# Investment Memo (Fallback)

The %s provider was not available. The prompt has been saved to:
- %s

You can generate the memo by running:
%s
`, g.Provider.Name(), g.PromptPath, g.Provider.RegenerateCommand(g.PromptPath))
}

// HTMLPath derives the HTML artifact path from the memo path.
func (g *Generator) HTMLPath() string {
	return strings.TrimSuffix(g.MemoPath, ".md") + ".html"
}

func (g *Generator) renderHTML(markdown string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return fmt.Errorf("render memo HTML: %w", err)
	}
	return os.WriteFile(g.HTMLPath(), buf.Bytes(), 0o644)
}
