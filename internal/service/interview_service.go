package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"prepwise/internal/domain"
	"prepwise/internal/llm"
	"prepwise/internal/metrics"
	"prepwise/internal/repository"
)

var interviewCovers = []string{
	"https://source.unsplash.com/random/800x600?interview",
	"https://source.unsplash.com/random/800x600?career",
	"https://source.unsplash.com/random/800x600?job",
}

// InterviewService genera sets de preguntas con el LLM y los persiste.
type InterviewService struct {
	logger     *zap.Logger
	llmClient  llm.LLMClient
	interviews repository.InterviewRepository
	pickCover  func() string
	now        func() time.Time
}

func NewInterviewService(logger *zap.Logger, llmClient llm.LLMClient, interviews repository.InterviewRepository) *InterviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterviewService{
		logger:     logger,
		llmClient:  llmClient,
		interviews: interviews,
		pickCover:  randomCover,
		now:        time.Now,
	}
}

type GenerateInterviewInput struct {
	Type      string
	Role      string
	Level     string
	Techstack string
	Amount    string
	UserID    string
}

func (s *InterviewService) Generate(ctx context.Context, input GenerateInterviewInput) (interview domain.Interview, err error) {
	defer func() {
		if _, ok := err.(*ValidationError); !ok {
			metrics.InterviewsGeneratedTotal.WithLabelValues(metrics.Result(err)).Inc()
		}
	}()

	input = trimInterviewInput(input)
	if input.Type == "" || input.Role == "" || input.Level == "" ||
		input.Techstack == "" || input.Amount == "" || input.UserID == "" {
		return domain.Interview{}, invalidInput("All fields are required")
	}
	if _, err := uuid.Parse(input.UserID); err != nil {
		return domain.Interview{}, invalidInput("Invalid userId")
	}

	raw, err := s.llmClient.Generate(ctx, buildInterviewPrompt(input))
	if err != nil {
		s.logger.Error("llm generate failed", zap.String("user_id", input.UserID), zap.Error(err))
		return domain.Interview{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		s.logger.Warn("llm returned unparseable questions",
			zap.String("user_id", input.UserID),
			zap.Int("response_len", len(raw)),
			zap.Error(err),
		)
		return domain.Interview{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	interview = domain.Interview{
		ID:         uuid.NewString(),
		Role:       input.Role,
		Type:       input.Type,
		Level:      input.Level,
		Techstack:  splitTechstack(input.Techstack),
		Questions:  questions,
		UserID:     input.UserID,
		Finalized:  true,
		CoverImage: s.pickCover(),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.interviews.Create(ctx, interview); err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return domain.Interview{}, ErrUserNotFound
		}
		return domain.Interview{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return interview, nil
}

func (s *InterviewService) ListForUser(ctx context.Context, userID string) ([]domain.Interview, error) {
	return s.interviews.ListByUserID(ctx, userID)
}

// GetForUser devuelve una entrevista solo si pertenece al usuario.
func (s *InterviewService) GetForUser(ctx context.Context, userID, interviewID string) (domain.Interview, error) {
	if _, err := uuid.Parse(interviewID); err != nil {
		return domain.Interview{}, ErrInterviewNotFound
	}
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, ErrInterviewNotFound
		}
		return domain.Interview{}, err
	}
	if interview.UserID != userID {
		return domain.Interview{}, ErrInterviewNotFound
	}
	return interview, nil
}

func parseQuestions(raw string) ([]string, error) {
	cleaned := cleanLLMJSONResponse(raw)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}
	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []string{}
	}
	return questions, nil
}

func splitTechstack(techstack string) []string {
	parts := strings.Split(techstack, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimInterviewInput(in GenerateInterviewInput) GenerateInterviewInput {
	return GenerateInterviewInput{
		Type:      strings.TrimSpace(in.Type),
		Role:      strings.TrimSpace(in.Role),
		Level:     strings.TrimSpace(in.Level),
		Techstack: strings.TrimSpace(in.Techstack),
		Amount:    strings.TrimSpace(in.Amount),
		UserID:    strings.TrimSpace(in.UserID),
	}
}

func randomCover() string {
	return interviewCovers[rand.IntN(len(interviewCovers))]
}
