package ai

import (
	"fmt"
	"strings"

	_ "embed"
)

var (
	//go:embed prompts/summary_paragraph.txt
	promptSummaryParagraph string
	//go:embed prompts/summary_bullets.txt
	promptSummaryBullets string
	//go:embed prompts/summary_detailed.txt
	promptSummaryDetailed string
	//go:embed prompts/summary_combine.txt
	promptSummaryCombine string
	//go:embed prompts/flashcards.txt
	promptFlashcards string
	//go:embed prompts/quiz.txt
	promptQuiz string
)

const (
	systemSummarizer = "You are a study assistant that condenses course material faithfully. Never invent facts."
	systemJSONOnly   = "You are a study material generator. Respond with a single JSON value that matches the requested schema exactly. No markdown, no commentary."
)

// Summary formats accepted by the generation endpoints.
const (
	FormatParagraph = "paragraph"
	FormatBullets   = "bullets"
	FormatDetailed  = "detailed"
)

// SummaryFormat normalizes a requested format and reports whether it was
// recognized. Unknown formats fall back to paragraph.
func SummaryFormat(format string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatParagraph, "":
		return FormatParagraph, true
	case FormatBullets:
		return FormatBullets, true
	case FormatDetailed:
		return FormatDetailed, true
	default:
		return FormatParagraph, false
	}
}

// SummaryPrompt builds the request for summarizing one chunk of text.
func SummaryPrompt(format, title, text string) Request {
	template := promptSummaryParagraph
	switch format {
	case FormatBullets:
		template = promptSummaryBullets
	case FormatDetailed:
		template = promptSummaryDetailed
	}
	instructions := strings.NewReplacer("{{TITLE}}", safeTitle(title)).Replace(template)
	return Request{
		System:      systemSummarizer,
		Prompt:      instructions + "\nMaterial:\n" + text,
		Temperature: 0.3,
	}
}

// CombineSummariesPrompt builds the request that merges per-chunk summaries
// into one document summary.
func CombineSummariesPrompt(format, title string, parts []string) Request {
	instructions := strings.NewReplacer(
		"{{TITLE}}", safeTitle(title),
		"{{FORMAT}}", format,
	).Replace(promptSummaryCombine)

	var b strings.Builder
	b.WriteString(instructions)
	for i, part := range parts {
		fmt.Fprintf(&b, "\nPart %d:\n%s\n", i+1, part)
	}
	return Request{
		System:      systemSummarizer,
		Prompt:      b.String(),
		Temperature: 0.3,
	}
}

// FlashcardsPrompt builds the request for a flashcard deck.
func FlashcardsPrompt(title, text string, count int) Request {
	instructions := strings.NewReplacer(
		"{{TITLE}}", safeTitle(title),
		"{{COUNT}}", fmt.Sprintf("%d", count),
	).Replace(promptFlashcards)
	return Request{
		System:      systemJSONOnly,
		Prompt:      instructions + "\nMaterial:\n" + text,
		JSONOutput:  true,
		Temperature: 0.4,
	}
}

// QuizPrompt builds the request for a multiple-choice quiz. Difficulty is
// one of easy, medium or hard.
func QuizPrompt(title, text string, count, optionCount int, difficulty string) Request {
	if difficulty == "" {
		difficulty = "medium"
	}
	instructions := strings.NewReplacer(
		"{{TITLE}}", safeTitle(title),
		"{{COUNT}}", fmt.Sprintf("%d", count),
		"{{OPTION_COUNT}}", fmt.Sprintf("%d", optionCount),
		"{{DIFFICULTY}}", difficulty,
	).Replace(promptQuiz)
	return Request{
		System:      systemJSONOnly,
		Prompt:      instructions + "\nMaterial:\n" + text,
		JSONOutput:  true,
		Temperature: 0.4,
	}
}

func safeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Untitled document"
	}
	return title
}
