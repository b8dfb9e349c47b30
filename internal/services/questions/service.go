package questions

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/storage"
)

//go:embed default.yaml
var defaultBank []byte

// bankFile is the on-disk YAML layout of a question bank
type bankFile struct {
	Questions []questionEntry `yaml:"questions"`
}

type questionEntry struct {
	Prompt  string   `yaml:"prompt"`
	Options []string `yaml:"options"`
	Correct string   `yaml:"correct"`
}

// Service owns the ordered question bank for the process
type Service struct {
	storage storage.Storage

	mu        sync.RWMutex
	questions []model.Question
	loaded    bool
}

// New creates a new QuestionService
func New(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// LoadDefault loads the built-in bank and saves it to storage
func (s *Service) LoadDefault(ctx context.Context) error {
	questions, err := Parse(defaultBank)
	if err != nil {
		return err
	}
	return s.loadAndSave(ctx, questions)
}

// LoadFromFile loads a YAML question bank and saves it to storage
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	questions, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return s.loadAndSave(ctx, questions)
}

// LoadFromStorage loads a previously saved bank
func (s *Service) LoadFromStorage(ctx context.Context) error {
	questions, err := s.storage.GetQuestions(ctx)
	if err != nil {
		return err
	}
	for i, q := range questions {
		if err := Validate(q); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return s.LoadQuestions(questions)
}

// LoadQuestions directly loads a slice of questions (useful for testing)
func (s *Service) LoadQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: bank is empty", model.ErrInvalidQuestion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.questions = make([]model.Question, len(questions))
	copy(s.questions, questions)
	s.loaded = true
	return nil
}

func (s *Service) loadAndSave(ctx context.Context, questions []model.Question) error {
	if err := s.LoadQuestions(questions); err != nil {
		return err
	}
	return s.storage.SaveQuestions(ctx, questions)
}

// Questions returns a copy of the loaded bank in play order
func (s *Service) Questions() ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, model.ErrQuestionsNotLoaded
	}
	result := make([]model.Question, len(s.questions))
	copy(result, s.questions)
	return result, nil
}

// IsLoaded returns whether a bank has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Count returns the number of loaded questions
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// Parse decodes and validates a YAML question bank
func Parse(data []byte) ([]model.Question, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("%w: bank is empty", model.ErrInvalidQuestion)
	}

	questions := make([]model.Question, 0, len(file.Questions))
	for i, entry := range file.Questions {
		q, err := entry.toQuestion()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (e questionEntry) toQuestion() (model.Question, error) {
	if len(e.Options) != model.OptionCount {
		return model.Question{}, fmt.Errorf("%w: want %d options, got %d",
			model.ErrInvalidQuestion, model.OptionCount, len(e.Options))
	}
	correct, err := model.ParseLetter(strings.ToUpper(strings.TrimSpace(e.Correct)))
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: correct answer %q", model.ErrInvalidQuestion, e.Correct)
	}

	q := model.Question{
		Prompt:  strings.TrimSpace(e.Prompt),
		Correct: correct,
	}
	for i, opt := range e.Options {
		q.Options[i] = strings.TrimSpace(opt)
	}
	return q, Validate(q)
}

// Validate checks that a question can be carried by the line protocol
func Validate(q model.Question) error {
	if !q.Correct.Valid() {
		return fmt.Errorf("%w: correct answer must be A-D", model.ErrInvalidQuestion)
	}
	if q.Prompt == "" {
		return fmt.Errorf("%w: empty prompt", model.ErrInvalidQuestion)
	}
	if err := checkText(q.Prompt); err != nil {
		return err
	}
	for _, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("%w: empty option", model.ErrInvalidQuestion)
		}
		if err := checkText(opt); err != nil {
			return err
		}
	}
	return nil
}

// checkText rejects text containing the field delimiter or a line break
func checkText(text string) error {
	if strings.ContainsAny(text, "|\r\n") {
		return fmt.Errorf("%w: text %q contains a delimiter or line break", model.ErrInvalidQuestion, text)
	}
	return nil
}

// Interface for dependency injection
type ServiceInterface interface {
	LoadDefault(ctx context.Context) error
	LoadFromFile(ctx context.Context, path string) error
	LoadFromStorage(ctx context.Context) error
	LoadQuestions(questions []model.Question) error
	Questions() ([]model.Question, error)
	IsLoaded() bool
	Count() int
}

var _ ServiceInterface = (*Service)(nil)
