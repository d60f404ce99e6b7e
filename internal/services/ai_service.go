package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/momentum-app/momentum-api/internal/constants"
)

// ErrAIDraftingDisabled is returned when no OpenAI API key is configured.
var ErrAIDraftingDisabled = errors.New("task drafting is not configured")

// AIService extracts task drafts from free-form text using OpenAI chat
// completions. Construct with an empty key to disable drafting.
type AIService struct {
	client *openai.Client
}

// TaskDraft is one extracted suggestion, ready for the client to confirm
// into a task-creation request.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Difficulty  int        `json:"difficulty"`
}

// NewAIService creates a new AIService.
func NewAIService(apiKey string) *AIService {
	s := &AIService{}
	if apiKey != "" {
		s.client = openai.NewClient(apiKey)
	}
	return s
}

const draftPrompt = `You are a task extraction assistant. Extract concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of the extracted tasks in this shape:
[
  {
    "title": "short task title",
    "description": "detailed task description",
    "due_date": "deadline as ISO8601, e.g. 2026-04-28T23:59:59Z, or null when the text names none",
    "difficulty": "estimated effort from 1 (trivial) to 5 (hard)"
  }
]

Rules:
- Return an empty array [] when the text contains no tasks
- Resolve relative deadlines ("tomorrow", "next week") against the current time
- due_date must be an ISO8601 string or null
- Return only the JSON, no prose`

// DraftTasks analyzes text and extracts task drafts.
func (s *AIService) DraftTasks(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, ErrAIDraftingDisabled
	}

	prompt := fmt.Sprintf(draftPrompt, time.Now().Format("2006-01-02 15:04:05"), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}

	return parseTaskDrafts(resp.Choices[0].Message.Content)
}

// parseTaskDrafts decodes the model's JSON array, tolerating a markdown code
// fence around it, and forces difficulty into the valid range.
func parseTaskDrafts(content string) ([]TaskDraft, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse draft response: %w (response: %s)", err, content)
	}

	for i := range drafts {
		switch {
		case drafts[i].Difficulty == 0:
			drafts[i].Difficulty = constants.DefaultDifficulty
		case drafts[i].Difficulty < constants.MinDifficulty:
			drafts[i].Difficulty = constants.MinDifficulty
		case drafts[i].Difficulty > constants.MaxDifficulty:
			drafts[i].Difficulty = constants.MaxDifficulty
		}
	}
	return drafts, nil
}
