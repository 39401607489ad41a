package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"learnlink-server/internal/domain"
	"learnlink-server/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator answers each call through respond and records the requests
type scriptedGenerator struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	respond  func(req domain.CompletionRequest) (string, error)
}

func (s *scriptedGenerator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(req)
}

type stubImages struct {
	url string
	err error
}

func (s *stubImages) SearchImage(ctx context.Context, query string) (string, error) {
	return s.url, s.err
}

const sampleText = "Hello world. This is a test document about photosynthesis."

func TestGenerators_PlaceholderWhenUnconfigured(t *testing.T) {
	g := NewContentGenerator(nil, nil, logger.NewNop())
	ctx := context.Background()

	rw, err := g.ReadingWriting(ctx, sampleText)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	require.NotNil(t, rw)
	assert.True(t, rw.Placeholder)
	assert.Contains(t, rw.Body(), "# Document Study Guide")
	assert.Contains(t, rw.Body(), "photosynthesis")
	assert.Contains(t, rw.Body(), "## Study Tips")

	au, err := g.Auditory(ctx, sampleText)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	assert.NotEmpty(t, au.Body())

	kin, err := g.Kinesthetic(ctx, sampleText)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	require.Len(t, kin.Activities, 1)
	assert.True(t, kin.Activities[0].Valid())

	vis, err := g.Visual(ctx, sampleText)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
	assert.NotEmpty(t, vis.Suggestions)
	for _, c := range vis.Explanations {
		assert.Equal(t, domain.PlaceholderImage, c.Image)
	}

	quiz, err := g.Quiz(ctx, sampleText, domain.QuizMultipleChoice)
	assert.Error(t, err)
	assert.Len(t, quiz.Questions, 10)
	for _, q := range quiz.Questions {
		assert.True(t, q.Valid(domain.QuizMultipleChoice))
	}

	fib, _ := g.Quiz(ctx, sampleText, domain.QuizFillInBlank)
	assert.Len(t, fib.Questions, 5)

	summary, err := g.Summary(ctx, sampleText)
	assert.Error(t, err)
	assert.Contains(t, summary, "Hello world.")
}

func TestReadingWriting_ChunksAndAssembles(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		if req.MaxTokens == 500 {
			return "Topics: light", nil
		}
		return "### Part body", nil
	}}
	g := NewContentGenerator(gen, nil, logger.NewNop())

	text := strings.Repeat("a", 20000)
	content, err := g.ReadingWriting(context.Background(), text)
	require.NoError(t, err)

	// one overview plus 14000/3000 rounded up
	require.Len(t, gen.requests, 6)
	assert.Equal(t, 0.5, gen.requests[0].Temperature)
	assert.LessOrEqual(t, len(gen.requests[0].Prompt), 1600)
	assert.Contains(t, gen.requests[5].Prompt, "part 5")

	body := content.Body()
	assert.True(t, strings.HasPrefix(body, "# Document Study Guide\n\n## Overview\n\nTopics: light\n\n"))
	assert.Contains(t, body, "\n## Part 5\n\n### Part body\n\n")
	assert.NotContains(t, body, "## Part 6")
	assert.False(t, content.Placeholder)
	assert.Equal(t, readingWritingCaption, content.Elements[0].Caption)
}

// Tests that a failure in the middle of a variant degrades exactly like an unconfigured backend
func TestReadingWriting_MidRequestFailureDegrades(t *testing.T) {
	calls := 0
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("upstream 503")
		}
		return "ok", nil
	}}
	g := NewContentGenerator(gen, nil, logger.NewNop())

	content, err := g.ReadingWriting(context.Background(), sampleText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 503")
	assert.True(t, content.Placeholder)
	assert.Contains(t, content.Body(), "# Document Study Guide")
}

func TestKinesthetic_InvalidResponseFallsBack(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		return "Title: Half an activity\nDescription: missing everything else", nil
	}}
	g := NewContentGenerator(gen, nil, logger.NewNop())

	content, err := g.Kinesthetic(context.Background(), sampleText)
	assert.ErrorIs(t, err, errNoValidActivities)
	require.Len(t, content.Activities, 1)
	assert.Equal(t, "Activity Generation Error", content.Activities[0].Title)
}

func TestVisual_AttachesImages(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		if req.JSON {
			return `{"concepts":[{"title":"Chlorophyll","text":"Green pigment."},{"title":"","text":"dropped"}]}`, nil
		}
		return "1. Draw the leaf\n- Map the inputs\n\n", nil
	}}
	g := NewContentGenerator(gen, &stubImages{url: "https://img.example/leaf.png"}, logger.NewNop())

	content, err := g.Visual(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, []string{"Draw the leaf", "Map the inputs"}, content.Suggestions)
	require.Len(t, content.Explanations, 1)
	assert.Equal(t, "https://img.example/leaf.png", content.Explanations[0].Image)
}

func TestConcepts_ImageSearchFailureUsesPlaceholder(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		return `[{"title":"Light","description":"Energy source."}]`, nil
	}}
	g := NewContentGenerator(gen, &stubImages{err: domain.ErrNotFound}, logger.NewNop())

	concepts, err := g.Concepts(context.Background(), sampleText)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "Energy source.", concepts[0].Text)
	assert.Equal(t, domain.PlaceholderImage, concepts[0].Image)
}

func TestQuiz_FiltersInvalidQuestions(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		return `{"questions":[
			{"question":"Q1","options":["A) x","B) y"],"correct_answer":"A"},
			{"question":"Q2","options":["A) x"],"correct_answer":"A"}
		]}`, nil
	}}
	g := NewContentGenerator(gen, nil, logger.NewNop())

	quiz, err := g.Quiz(context.Background(), sampleText, domain.QuizMultipleChoice)
	require.NoError(t, err)
	assert.False(t, quiz.Placeholder)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Q1", quiz.Questions[0].Question)
	assert.True(t, gen.requests[0].JSON)
}

func TestPredictLearningStyle(t *testing.T) {
	gen := &scriptedGenerator{respond: func(req domain.CompletionRequest) (string, error) {
		return "Reading/Writing.", nil
	}}
	v, err := NewContentGenerator(gen, nil, logger.NewNop()).PredictLearningStyle(context.Background(), "I like notes")
	require.NoError(t, err)
	assert.Equal(t, domain.VariantReadingWriting, v)

	v, err = NewContentGenerator(nil, nil, logger.NewNop()).PredictLearningStyle(context.Background(), "I learn by doing hands-on experiment and practice")
	assert.Error(t, err)
	assert.Equal(t, domain.VariantKinesthetic, v)
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, []string{"ab", "cd", "e"}, chunkText("abcde", 2, 5))
	assert.Equal(t, []string{"ab", "cd"}, chunkText("abcde", 2, 2))
	assert.Equal(t, "One. Two!", leadingSentences("One.  Two!\nThree? Four.", 2))
}
