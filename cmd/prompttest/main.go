package main

// Exercise a generation prompt against a local study document without the
// full API running:
//   go run ./cmd/prompttest -file notes.pdf -kind summary -format bullets

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"neurolearn-backend/internal/ai"
	"neurolearn-backend/internal/ai/gemini"
	"neurolearn-backend/internal/extract"
	"neurolearn-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to the study document (pdf, docx, pptx or txt)")
	kind := flag.String("kind", "summary", "Prompt kind: summary, flashcards or quiz")
	format := flag.String("format", "paragraph", "Summary format (summary kind only)")
	count := flag.Int("count", 0, "Card/question count (0 for default)")
	difficulty := flag.String("difficulty", "medium", "Quiz difficulty (quiz kind only)")
	model := flag.String("model", cfg.GeminiModel, "Gemini model")
	outPath := flag.String("out", "", "Path to write the raw model output (optional)")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}
	fileName := filepath.Base(*filePath)

	text, err := extract.ExtractTextFromBytes(context.Background(), data, mimeFromExt(*filePath), fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}

	req, err := buildRequest(*kind, fileName, text, *format, *count, *difficulty)
	if err != nil {
		exitErr(err.Error())
	}

	client, err := gemini.NewClient(cfg.GeminiAPIKey, *model, cfg.GeminiTimeout)
	if err != nil {
		exitErr(err.Error())
	}
	client.SetBaseURL(cfg.GeminiBaseURL)

	resp, err := client.Generate(context.Background(), req)
	if err != nil {
		exitErr(fmt.Sprintf("generate: %v", err))
	}

	out := resp.Text
	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(out), 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	fmt.Println(out)
}

func buildRequest(kind, title, text, format string, count int, difficulty string) (ai.Request, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "summary":
		normalized, ok := ai.SummaryFormat(format)
		if !ok {
			return ai.Request{}, fmt.Errorf("unknown summary format: %s", format)
		}
		return ai.SummaryPrompt(normalized, title, text), nil
	case "flashcards":
		if count <= 0 {
			count = 12
		}
		return ai.FlashcardsPrompt(title, text, count), nil
	case "quiz":
		if count <= 0 {
			count = 5
		}
		return ai.QuizPrompt(title, text, count, 4, difficulty), nil
	default:
		return ai.Request{}, fmt.Errorf("unsupported prompt kind: %s", kind)
	}
}

func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
