package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/quizdesk/assignment-service/internal/models"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

func (g *gradingService) Grade(question *models.Question, payload models.AnswerPayload) (*bool, error) {
	switch question.Kind {
	case models.Open:
		// Open answers are recorded verbatim, never auto-graded
		if strings.TrimSpace(payload.Text) == "" {
			return nil, NewValidationError("answer text is required", nil)
		}
		return nil, nil

	case models.SingleSelect:
		content, err := question.SingleSelectContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode question content: %w", err)
		}
		if len(payload.Selected) != 1 {
			return nil, ErrEmptySelection
		}
		idx := payload.Selected[0]
		if idx < 0 || idx >= len(content.Options) {
			return nil, NewValidationError(fmt.Sprintf("option index %d out of range", idx), nil)
		}
		correct := idx == content.CorrectIndex
		return &correct, nil

	case models.MultiSelect:
		content, err := question.MultiSelectContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode question content: %w", err)
		}
		if len(payload.Selected) == 0 {
			return nil, ErrEmptySelection
		}
		for _, idx := range payload.Selected {
			if idx < 0 || idx >= len(content.Options) {
				return nil, NewValidationError(fmt.Sprintf("option index %d out of range", idx), nil)
			}
		}
		correct := sameIndexSet(payload.Selected, content.CorrectIndices)
		return &correct, nil

	default:
		return nil, fmt.Errorf("unknown question kind: %s", question.Kind)
	}
}

func (g *gradingService) Score(questions []*models.Question, answers []*models.Answer) models.Score {
	score := models.Score{}
	// The denominator is the template's closed-question count, so an expired
	// run with skipped questions still scores against the full quiz
	for _, question := range questions {
		if question.Kind.IsClosed() {
			score.Gradable++
		}
	}
	for _, answer := range answers {
		if answer.IsCorrect != nil && *answer.IsCorrect {
			score.Correct++
		}
	}
	if score.Gradable > 0 {
		score.Percent = float64(score.Correct) * 100.0 / float64(score.Gradable)
	}
	return score
}

// sameIndexSet compares two option index sets ignoring order and duplicates
func sameIndexSet(a, b []int) bool {
	normalize := func(in []int) []int {
		seen := make(map[int]struct{}, len(in))
		out := make([]int, 0, len(in))
		for _, v := range in {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
		sort.Ints(out)
		return out
	}
	na, nb := normalize(a), normalize(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
