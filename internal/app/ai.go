package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	correctSystemPrompt = "あなたは自分史の編集者です。与えられた文章の誤字脱字と文法を直し、" +
		"話し言葉を自然な書き言葉に整えてください。内容や事実は変えず、" +
		"修正後の文章だけを返してください。"
	summarySystemPrompt = "あなたは自分史の編集者です。与えられた文章の要約を" +
		"三文以内の日本語で返してください。要約だけを返してください。"
)

// CorrectText asks the provider to clean up the text. Provider failures
// degrade to returning the original text untouched, reported via corrected.
func (a *App) CorrectText(ctx context.Context, text string) (out string, corrected bool, err error) {
	if strings.TrimSpace(text) == "" {
		return "", false, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if a.generator == nil {
		return "", false, ErrAIUnavailable
	}
	result, genErr := a.generator.GenerateText(ctx, correctSystemPrompt, text)
	if genErr != nil {
		slog.Warn("text correction failed, passing original through", "error", genErr)
		return text, false, nil
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return text, false, nil
	}
	return result, true, nil
}

// correctStrict is the assembly-path variant: a provider failure is an error,
// because persisting an uncorrected narrative silently is worse than failing.
func (a *App) correctStrict(ctx context.Context, text string) (string, error) {
	result, err := a.generator.GenerateText(ctx, correctSystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("correct narrative: %w", err)
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return "", fmt.Errorf("correct narrative: empty provider response")
	}
	return result, nil
}

// Summarize returns a short provider-generated summary of the text.
func (a *App) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is required", ErrValidation)
	}
	if a.generator == nil {
		return "", ErrAIUnavailable
	}
	result, err := a.generator.GenerateText(ctx, summarySystemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return "", fmt.Errorf("summarize: empty provider response")
	}
	return result, nil
}
