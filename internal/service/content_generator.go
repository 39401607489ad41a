package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"learnlink-server/internal/domain"
	"learnlink-server/pkg/metrics"
)

const (
	outcomeGenerated   = "generated"
	outcomePlaceholder = "placeholder"
	outcomeError       = "error"
)

var errNoValidActivities = errors.New("response contained no valid activities")

// ContentGenerator turns extracted text into the four learning-style variants plus summaries and quizzes.
// Every method returns usable content. A non-nil error means the content is a placeholder and says why.
type ContentGenerator struct {
	text   domain.TextGenerator
	images domain.ImageSearcher
	logger domain.Logger
}

// NewContentGenerator creates a generator. text and images may be nil.
func NewContentGenerator(text domain.TextGenerator, images domain.ImageSearcher, logger domain.Logger) *ContentGenerator {
	return &ContentGenerator{text: text, images: images, logger: logger}
}

// Available reports whether a generative backend is configured
func (g *ContentGenerator) Available() bool {
	return g.text != nil
}

func (g *ContentGenerator) complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if g.text == nil {
		return "", domain.ErrGeneratorUnavailable
	}
	out, err := g.text.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("generative backend returned an empty response")
	}
	return out, nil
}

func (g *ContentGenerator) record(kind string, err error) {
	switch {
	case err == nil:
		metrics.Generations.WithLabelValues(kind, outcomeGenerated).Inc()
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		metrics.Generations.WithLabelValues(kind, outcomePlaceholder).Inc()
		g.logger.Debug("Generative backend not configured, using placeholder", "variant", kind)
	default:
		metrics.Generations.WithLabelValues(kind, outcomeError).Inc()
		g.logger.Warn("Generation failed, using placeholder", "variant", kind, "error", err)
	}
}

// ReadingWriting builds a structured study guide: an overview call, then one call per chunk
func (g *ContentGenerator) ReadingWriting(ctx context.Context, text string) (*domain.TextContent, error) {
	content, err := g.readingWriting(ctx, text)
	g.record(string(domain.VariantReadingWriting), err)
	if err != nil {
		return placeholderReadingWriting(text), err
	}
	return content, nil
}

func (g *ContentGenerator) readingWriting(ctx context.Context, text string) (*domain.TextContent, error) {
	truncated := truncate(text, maxInputChars)

	overview, err := g.complete(ctx, domain.CompletionRequest{
		System:      "You are an expert educator specializing in identifying main topics and creating structured outlines. Extract the main topics from this document and create a brief outline.",
		Prompt:      "Extract the 3-6 main topics from this document and provide a brief overview:\n\n" + truncate(truncated, overviewChars),
		MaxTokens:   500,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	chunks := chunkText(truncated, chunkSize, maxChunks)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		part, err := g.complete(ctx, domain.CompletionRequest{
			System:      readingWritingSystemPrompt,
			Prompt:      fmt.Sprintf("You're processing part %d of a larger document. Create educational content that explains the concepts in this chunk, ensuring it flows well as part of a larger study guide:\n\n%s", i+1, chunk),
			MaxTokens:   1500,
			Temperature: 0.7,
		})
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i+1, err)
		}
		parts = append(parts, part)
	}

	return &domain.TextContent{
		Title:       readingWritingTitle,
		Description: readingWritingDescription,
		Elements: []domain.ContentElement{{
			Type:    "text",
			Content: studyGuide(overview, parts),
			Caption: readingWritingCaption,
		}},
	}, nil
}

// Auditory produces narration text. Speech synthesis is left to the caller.
func (g *ContentGenerator) Auditory(ctx context.Context, text string) (*domain.TextContent, error) {
	narration, err := g.complete(ctx, domain.CompletionRequest{
		System:      "You are an AI tutor specialized in creating spoken-friendly content for auditory learners. Transform educational content into engaging, conversational explanations that sound natural when spoken aloud.",
		Prompt:      "Transform this content into a spoken-friendly, engaging explanation that would be easy to understand when read aloud:\n\n" + truncate(text, maxInputChars),
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	g.record(string(domain.VariantAuditory), err)
	if err != nil {
		return placeholderAuditory(), err
	}
	return &domain.TextContent{
		Title:       auditoryTitle,
		Description: auditoryDescription,
		Elements:    []domain.ContentElement{{Type: "text", Content: narration, Caption: auditoryCaption}},
	}, nil
}

// Kinesthetic asks for hands-on activities and keeps the ones that parse and validate.
// When none survive, a single fallback activity is returned together with errNoValidActivities.
func (g *ContentGenerator) Kinesthetic(ctx context.Context, text string) (*domain.KinestheticContent, error) {
	raw, err := g.complete(ctx, domain.CompletionRequest{
		System:      kinestheticSystemPrompt,
		Prompt:      "Create interactive, hands-on learning activities for this content:\n\n" + truncate(text, maxInputChars),
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	if err != nil {
		g.record(string(domain.VariantKinesthetic), err)
		return placeholderKinesthetic(), err
	}

	activities := ParseActivities(raw)
	if len(activities) == 0 {
		g.record(string(domain.VariantKinesthetic), errNoValidActivities)
		return &domain.KinestheticContent{
			Title:       kinestheticTitle,
			Description: kinestheticDescription,
			Activities:  []domain.Activity{fallbackActivity()},
			Placeholder: true,
		}, errNoValidActivities
	}

	g.record(string(domain.VariantKinesthetic), nil)
	return &domain.KinestheticContent{
		Title:       kinestheticTitle,
		Description: kinestheticDescription,
		Activities:  activities,
	}, nil
}

// Visual combines list-style suggestions with titled concepts that carry an image each
func (g *ContentGenerator) Visual(ctx context.Context, text string) (*domain.VisualContent, error) {
	content, err := g.visual(ctx, text)
	g.record(string(domain.VariantVisual), err)
	if err != nil {
		return placeholderVisual(), err
	}
	return content, nil
}

func (g *ContentGenerator) visual(ctx context.Context, text string) (*domain.VisualContent, error) {
	truncated := truncate(text, maxInputChars)

	raw, err := g.complete(ctx, domain.CompletionRequest{
		System:      "Create visual learning suggestions for the provided content. Generate a list of 4-6 specific ways a visual learner could engage with this content. Focus on techniques like mind mapping, diagramming, sketching, and visual note-taking.",
		Prompt:      "Create visual learning suggestions for this content:\n\n" + truncated,
		MaxTokens:   800,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}

	concepts, err := g.concepts(ctx, truncated, "3-5")
	if err != nil {
		return nil, err
	}

	return &domain.VisualContent{
		Title:        visualTitle,
		Description:  visualDescription,
		Suggestions:  ParseSuggestions(raw),
		Explanations: g.withImages(ctx, concepts),
	}, nil
}

// Concepts extracts 4-6 titled concepts with images, or placeholder concepts on failure
func (g *ContentGenerator) Concepts(ctx context.Context, text string) ([]domain.Concept, error) {
	concepts, err := g.concepts(ctx, truncate(text, maxInputChars), "4-6")
	g.record("concepts", err)
	if err != nil {
		return placeholderConcepts(), err
	}
	return g.withImages(ctx, concepts), nil
}

func (g *ContentGenerator) concepts(ctx context.Context, text, count string) ([]domain.Concept, error) {
	raw, err := g.complete(ctx, domain.CompletionRequest{
		System: "Extract " + count + " main concepts or topics from the provided text. For each concept provide a short title (1-3 words) " +
			`and a brief explanation (50-70 words). Return a JSON object {"concepts": [{"title": "...", "text": "..."}]}.`,
		Prompt:      "Extract key concepts from this content:\n\n" + text,
		MaxTokens:   1000,
		Temperature: 0.7,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("concepts: %w", err)
	}
	concepts, err := parseConcepts(raw)
	if err != nil {
		return nil, fmt.Errorf("concepts: %w", err)
	}
	return concepts, nil
}

// parseConcepts accepts {"concepts": [...]}, {"explanations": [...]} or a bare array
func parseConcepts(raw string) ([]domain.Concept, error) {
	type item struct {
		Title       string `json:"title"`
		Text        string `json:"text"`
		Description string `json:"description"`
	}
	var items []item

	var wrapped struct {
		Concepts     []item `json:"concepts"`
		Explanations []item `json:"explanations"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		items = append(wrapped.Concepts, wrapped.Explanations...)
	} else if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode concepts: %w", err)
	}

	var out []domain.Concept
	for _, it := range items {
		text := it.Text
		if text == "" {
			text = it.Description
		}
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		out = append(out, domain.Concept{Title: strings.TrimSpace(it.Title), Text: strings.TrimSpace(text)})
	}
	if len(out) == 0 {
		return nil, errors.New("response contained no concepts")
	}
	return out, nil
}

func (g *ContentGenerator) withImages(ctx context.Context, concepts []domain.Concept) []domain.Concept {
	for i := range concepts {
		concepts[i].Image = g.ImageFor(ctx, concepts[i].Title)
	}
	return concepts
}

// ImageFor looks up an educational diagram for topic, or the placeholder image
func (g *ContentGenerator) ImageFor(ctx context.Context, topic string) string {
	url, err := g.SearchImage(ctx, topic)
	if err != nil {
		return domain.PlaceholderImage
	}
	return url
}

// SearchImage looks up an educational diagram for topic
func (g *ContentGenerator) SearchImage(ctx context.Context, topic string) (string, error) {
	if g.images == nil {
		return "", domain.ErrGeneratorUnavailable
	}
	url, err := g.images.SearchImage(ctx, topic+" diagram educational")
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			g.logger.Warn("Image search failed", "topic", topic, "error", err)
		}
		return "", err
	}
	return url, nil
}

// Summary writes a sectioned summary of the document
func (g *ContentGenerator) Summary(ctx context.Context, text string) (string, error) {
	summary, err := g.complete(ctx, domain.CompletionRequest{
		System:      "You are an expert at summarizing documents. Create a comprehensive summary that includes: 1) Main points and key ideas 2) Important details and examples 3) Conclusions or findings. Format the summary with clear sections and bullet points where appropriate.",
		Prompt:      "Please summarize this document:\n\n" + truncate(text, maxInputChars),
		MaxTokens:   1000,
		Temperature: 0.5,
	})
	g.record("summary", err)
	if err != nil {
		return placeholderSummary(text), err
	}
	return summary, nil
}

// Quiz generates 10 multiple-choice or 5 fill-in-the-blank questions
func (g *ContentGenerator) Quiz(ctx context.Context, text, quizType string) (*domain.Quiz, error) {
	quiz, err := g.quiz(ctx, text, quizType)
	g.record("quiz_"+quizType, err)
	if err != nil {
		return placeholderQuiz(quizType), err
	}
	return quiz, nil
}

func (g *ContentGenerator) quiz(ctx context.Context, text, quizType string) (*domain.Quiz, error) {
	system := multipleChoicePrompt
	if quizType == domain.QuizFillInBlank {
		system = fillInBlankPrompt
	}
	raw, err := g.complete(ctx, domain.CompletionRequest{
		System:      system,
		Prompt:      "Create quiz questions based on this content:\n\n" + truncate(text, maxInputChars),
		MaxTokens:   2000,
		Temperature: 0.7,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []domain.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	quiz := &domain.Quiz{Type: quizType}
	for _, q := range parsed.Questions {
		if q.Valid(quizType) {
			quiz.Questions = append(quiz.Questions, q)
		}
	}
	if len(quiz.Questions) == 0 {
		return nil, errors.New("response contained no valid questions")
	}
	return quiz, nil
}

// PredictLearningStyle classifies free text into one of the four variants
func (g *ContentGenerator) PredictLearningStyle(ctx context.Context, text string) (domain.Variant, error) {
	raw, err := g.complete(ctx, domain.CompletionRequest{
		System:      "Classify the learner's preferred learning style from their self-description. Answer with exactly one of: visual, auditory, reading_writing, kinesthetic.",
		Prompt:      truncate(text, maxInputChars),
		MaxTokens:   10,
		Temperature: 0,
	})
	if err == nil {
		label := strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".\"'"))
		label = strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(label)
		if v, perr := domain.ParseVariant(label); perr == nil {
			g.record("predict", nil)
			return v, nil
		}
		err = fmt.Errorf("unexpected label %q", raw)
	}
	g.record("predict", err)
	return keywordLearningStyle(text), err
}

var styleKeywords = map[domain.Variant][]string{
	domain.VariantVisual:         {"see", "picture", "diagram", "chart", "image", "visual", "color", "map", "video", "watch"},
	domain.VariantAuditory:       {"hear", "listen", "talk", "discuss", "audio", "podcast", "lecture", "sound", "explain", "music"},
	domain.VariantReadingWriting: {"read", "write", "notes", "list", "book", "text", "essay", "article", "journal", "handout"},
	domain.VariantKinesthetic:    {"do", "hands-on", "practice", "build", "move", "touch", "experiment", "try", "activity", "lab"},
}

// keywordLearningStyle counts style keywords; ties go to the earlier variant in AllVariants, visual when nothing matches
func keywordLearningStyle(text string) domain.Variant {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && r != '-'
	})
	counts := map[domain.Variant]int{}
	for _, w := range words {
		for v, kws := range styleKeywords {
			for _, kw := range kws {
				if w == kw {
					counts[v]++
				}
			}
		}
	}
	best := domain.VariantVisual
	bestCount := 0
	for _, v := range domain.AllVariants {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

const readingWritingSystemPrompt = `You are an expert educator specializing in creating detailed educational content. Your goal is to explain concepts thoroughly while maintaining engagement and clarity. Create content that teaches concepts as if explaining to someone learning about them for the first time.

Format using:
- Clear headings (# for main topics, ## for subtopics, ### for specific concepts)
- Paragraphs for detailed explanations
- Bullet points (* or -) for features and components
- Numbered lists (1. 2. 3.) for steps and processes`

const kinestheticSystemPrompt = `You are an AI tutor specialized in creating hands-on, interactive learning activities for kinesthetic learners.
Transform educational content into engaging physical exercises, experiments, and real-world applications.

Format each activity with these exact headings:
Title: [Activity Title]
Description: [Brief overview]
Materials:
- [First item]
- [Second item]
Steps:
1. [First step]
2. [Second step]
3. [Third step]
Tips:
- [First tip]
- [Second tip]
Reflection Questions:
- [First question]
- [Second question]

Create 2-3 activities that use readily available materials and are safe for individual or group work.`

const multipleChoicePrompt = `Create 10 multiple choice questions based on the content. Respond with a JSON object:
{"questions": [{"question": "...", "options": ["A) ...", "B) ...", "C) ...", "D) ..."], "correct_answer": "A", "explanation": "..."}]}`

const fillInBlankPrompt = `Create 5 fill-in-the-blank questions based on the content. Take a sentence from the content and replace a key term with _____ (5 underscores). Respond with a JSON object:
{"questions": [{"text_before_blank": "...", "text_after_blank": "...", "correct_answer": "...", "alternative_answers": ["..."], "required_keywords": ["..."], "explanation": "...", "context": "..."}]}`
