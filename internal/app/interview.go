package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jibunshi/pkg/domain"
)

// SaveInterviewInput is an interview progress snapshot from the client.
// Conversation and Answers replace the stored values wholesale.
type SaveInterviewInput struct {
	QuestionIndex   int
	Conversation    []domain.ChatMessage
	Answers         []domain.InterviewAnswer
	ClientTimestamp int64
}

// SaveInterview stores an interview snapshot using last-writer-wins ordering
// by client timestamp. It returns saved=false when the stored snapshot is at
// least as new, which the caller reports as a skip rather than an error.
func (a *App) SaveInterview(userID string, in SaveInterviewInput) (bool, error) {
	if in.QuestionIndex < 0 {
		return false, fmt.Errorf("%w: question index must be >= 0", ErrValidation)
	}
	if in.ClientTimestamp <= 0 {
		return false, fmt.Errorf("%w: timestamp is required", ErrValidation)
	}
	now := time.Now().UTC()
	sess := domain.InterviewSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		QuestionIndex:   in.QuestionIndex,
		Conversation:    in.Conversation,
		Answers:         in.Answers,
		ClientTimestamp: in.ClientTimestamp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	saved, err := a.store.UpsertInterviewSession(sess)
	if err != nil {
		return false, fmt.Errorf("save interview: %w", err)
	}
	return saved, nil
}

// LoadInterview returns the stored interview snapshot for the user.
func (a *App) LoadInterview(userID string) (domain.InterviewSession, error) {
	sess, found, err := a.store.GetInterviewSession(userID)
	if err != nil {
		return domain.InterviewSession{}, fmt.Errorf("load interview: %w", err)
	}
	if !found {
		return domain.InterviewSession{}, ErrInterviewNotFound
	}
	return sess, nil
}

// DeleteInterview removes the stored snapshot. Deleting an absent snapshot is
// not an error.
func (a *App) DeleteInterview(userID string) error {
	if _, err := a.store.DeleteInterviewSession(userID); err != nil {
		return fmt.Errorf("delete interview: %w", err)
	}
	return nil
}

const questionSystemPrompt = "あなたは自分史作成を手伝う優しいインタビュアーです。" +
	"高齢の方が昔を思い出しやすい、具体的で答えやすい質問を一つだけ日本語で返してください。" +
	"前置きや番号は付けないでください。"

var stagePromptHints = map[domain.Stage]string{
	domain.StageBirth:      "生まれた頃や家族のこと",
	domain.StageChildhood:  "子供時代の遊びや思い出",
	domain.StageSchool:     "学生時代の勉強や友人",
	domain.StageWork:       "仕事や社会人になってからのこと",
	domain.StageMemory:     "特に心に残っている出来事",
	domain.StageRetirement: "退職後の暮らしや今の楽しみ",
}

// NextQuestion asks the AI provider for one new interview question for the
// given stage, avoiding the already asked ones.
func (a *App) NextQuestion(ctx context.Context, stage domain.Stage, asked []string) (string, error) {
	if a.generator == nil {
		return "", ErrAIUnavailable
	}
	if !domain.KnownStage(stage) {
		return "", fmt.Errorf("%w: unknown stage %q", ErrValidation, stage)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "テーマ: %s\n", stagePromptHints[stage])
	if len(asked) > 0 {
		sb.WriteString("すでにした質問(重複しないこと):\n")
		for _, q := range asked {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			sb.WriteString("- " + q + "\n")
		}
	}
	sb.WriteString("次の質問を一つ: ")
	question, err := a.generator.GenerateText(ctx, questionSystemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("generate question: %w", err)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("generate question: empty provider response")
	}
	return question, nil
}
