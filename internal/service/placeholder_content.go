package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"learnlink-server/internal/domain"
)

const (
	readingWritingTitle       = "Reading/Writing Learning Materials"
	readingWritingDescription = "This content has been optimized for reading/writing learners with structured notes, clear headings, and organized points."
	readingWritingCaption     = "Structured Study Guide"

	auditoryTitle       = "Audio Learning Materials"
	auditoryDescription = "This content has been optimized for auditory learners with spoken explanations and examples."
	auditoryCaption     = "Spoken Explanation"

	kinestheticTitle       = "Interactive Learning Activities"
	kinestheticDescription = "Learn through hands-on activities and physical engagement."

	visualTitle       = "Visual Learning Materials"
	visualDescription = "Learn through diagrams, concept maps, and visual representations."

	studyTips = "\n## Study Tips\n\n" +
		"* Review each section thoroughly before proceeding to the next\n" +
		"* Create your own notes based on the key points\n" +
		"* Try to explain these concepts in your own words\n" +
		"* Practice applying these concepts to real-world scenarios"

	maxInputChars   = 14000
	chunkSize       = 3000
	maxChunks       = 5
	overviewChars   = 1500
	overviewSummary = 3
)

// studyGuide assembles the reading/writing markdown from an overview and processed parts
func studyGuide(overview string, parts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Document Study Guide\n\n## Overview\n\n%s\n\n", overview)
	for i, part := range parts {
		fmt.Fprintf(&b, "\n## Part %d\n\n%s\n\n", i+1, part)
	}
	b.WriteString(studyTips)
	return b.String()
}

// placeholderReadingWriting builds the study guide straight from the extracted text
func placeholderReadingWriting(text string) *domain.TextContent {
	overview := leadingSentences(text, overviewSummary)
	if overview == "" {
		overview = "No overview is available for this document."
	}
	return &domain.TextContent{
		Title:       readingWritingTitle,
		Description: readingWritingDescription,
		Elements: []domain.ContentElement{{
			Type:    "text",
			Content: studyGuide(overview, chunkText(truncate(text, maxInputChars), chunkSize, maxChunks)),
			Caption: readingWritingCaption,
		}},
		Placeholder: true,
	}
}

func placeholderAuditory() *domain.TextContent {
	return &domain.TextContent{
		Title:       auditoryTitle,
		Description: auditoryDescription,
		Elements: []domain.ContentElement{{
			Type:    "text",
			Content: "Imagine you're learning about this topic in a conversation with a friendly tutor...",
			Caption: auditoryCaption,
		}},
		Placeholder: true,
	}
}

func placeholderKinesthetic() *domain.KinestheticContent {
	return &domain.KinestheticContent{
		Title:       kinestheticTitle,
		Description: kinestheticDescription,
		Activities: []domain.Activity{{
			Title:       "Sample Activity",
			Description: "A hands-on exercise to understand the concept.",
			Materials:   []string{"Item 1", "Item 2"},
			Steps:       []string{"Step 1", "Step 2", "Step 3"},
			Tips:        []string{"Tip 1", "Tip 2"},
			Reflection:  []string{"Question 1", "Question 2"},
		}},
		Placeholder: true,
	}
}

// fallbackActivity replaces a response in which no activity passed validation
func fallbackActivity() domain.Activity {
	return domain.Activity{
		Title:       "Activity Generation Error",
		Description: "Please try regenerating the activities.",
		Materials:   []string{"Paper", "Pen"},
		Steps:       []string{"Review the content carefully", "Take notes on key concepts", "Practice explaining the concepts"},
		Tips:        []string{"Focus on understanding one concept at a time", "Try to relate concepts to real-world examples"},
		Reflection:  []string{"What are the main ideas you learned?", "How can you apply this knowledge?"},
	}
}

func placeholderVisual() *domain.VisualContent {
	return &domain.VisualContent{
		Title:       visualTitle,
		Description: visualDescription,
		Suggestions: []string{
			"Create mind maps connecting key concepts from the document",
			"Use color-coding to highlight related information",
			"Draw timelines to visualize sequences and processes",
			"Convert text information into diagrams, charts, or graphs",
		},
		Explanations: placeholderConcepts(),
		Placeholder:  true,
	}
}

func placeholderConcepts() []domain.Concept {
	return []domain.Concept{
		{Title: "Concept Mapping", Text: "Organize information visually by connecting related ideas with lines or arrows", Image: domain.PlaceholderImage},
		{Title: "Visual Hierarchies", Text: "Represent information in a top-down structure showing relationships between main topics and subtopics", Image: domain.PlaceholderImage},
		{Title: "Color Coding", Text: "Use colors systematically to categorize information and highlight patterns", Image: domain.PlaceholderImage},
	}
}

func placeholderSummary(text string) string {
	lead := leadingSentences(text, overviewSummary)
	if lead == "" {
		lead = "No summary is available for this document."
	}
	return "## Summary\n\n" + lead
}

func placeholderQuiz(quizType string) *domain.Quiz {
	quiz := &domain.Quiz{Type: quizType, Placeholder: true}
	if quizType == domain.QuizFillInBlank {
		for i := 1; i <= 5; i++ {
			quiz.Questions = append(quiz.Questions, domain.QuizQuestion{
				TextBeforeBlank: fmt.Sprintf("Sample sentence %d has a", i),
				TextAfterBlank:  "in the middle.",
				CorrectAnswer:   "blank",
				Explanation:     "Quiz generation is not available right now.",
			})
		}
		return quiz
	}
	for i := 1; i <= 10; i++ {
		quiz.Questions = append(quiz.Questions, domain.QuizQuestion{
			Question:      fmt.Sprintf("Sample question %d about the document", i),
			Options:       []string{"A) Option A", "B) Option B", "C) Option C", "D) Option D"},
			CorrectAnswer: "A",
			Explanation:   "Quiz generation is not available right now.",
		})
	}
	return quiz
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// chunkText splits s into at most max pieces of size runes
func chunkText(s string, size, max int) []string {
	runes := []rune(s)
	var chunks []string
	for start := 0; start < len(runes) && len(chunks) < max; start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// leadingSentences returns the first n sentences of s on one line
func leadingSentences(s string, n int) string {
	fields := strings.Fields(s)
	var out []string
	count := 0
	for _, f := range fields {
		out = append(out, f)
		if strings.HasSuffix(f, ".") || strings.HasSuffix(f, "!") || strings.HasSuffix(f, "?") {
			count++
			if count == n {
				break
			}
		}
	}
	return truncate(strings.Join(out, " "), 500)
}
