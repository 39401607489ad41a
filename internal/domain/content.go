package domain

// PlaceholderImage is returned wherever an image could not be found
const PlaceholderImage = "/static/images/placeholder.png"

// ContentElement is one block of a text-based variant
type ContentElement struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Caption string `json:"caption,omitempty"`
}

// TextContent is the reading/writing and auditory variant shape
type TextContent struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Elements    []ContentElement `json:"elements"`
	AudioURL    string           `json:"audioUrl,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
	Placeholder bool             `json:"placeholder,omitempty"`
}

// Body returns the content of the first element
func (c *TextContent) Body() string {
	if c == nil || len(c.Elements) == 0 {
		return ""
	}
	return c.Elements[0].Content
}

// Activity is one hands-on kinesthetic exercise
type Activity struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
	Steps       []string `json:"steps"`
	Tips        []string `json:"tips"`
	Reflection  []string `json:"reflection"`
}

// Valid reports whether the activity has every required section
func (a Activity) Valid() bool {
	return a.Title != "" &&
		a.Description != "" &&
		len(a.Materials) >= 1 &&
		len(a.Steps) >= 2 &&
		len(a.Tips) >= 1 &&
		len(a.Reflection) >= 1
}

// KinestheticContent is the kinesthetic variant shape
type KinestheticContent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Activities  []Activity `json:"activities"`
	Placeholder bool       `json:"placeholder,omitempty"`
}

// Concept is a titled explanation with an illustrating image
type Concept struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Image string `json:"image"`
}

// VisualContent is the visual variant shape
type VisualContent struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Suggestions  []string  `json:"suggestions"`
	Explanations []Concept `json:"explanations"`
	Placeholder  bool      `json:"placeholder,omitempty"`
}

// Quiz types
const (
	QuizMultipleChoice = "multiple_choice"
	QuizFillInBlank    = "fill_in_blank"
)

// QuizQuestion covers both quiz types; unused fields stay empty
type QuizQuestion struct {
	Question           string   `json:"question,omitempty"`
	Options            []string `json:"options,omitempty"`
	TextBeforeBlank    string   `json:"text_before_blank,omitempty"`
	TextAfterBlank     string   `json:"text_after_blank,omitempty"`
	CorrectAnswer      string   `json:"correct_answer"`
	AlternativeAnswers []string `json:"alternative_answers,omitempty"`
	RequiredKeywords   []string `json:"required_keywords,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
	Context            string   `json:"context,omitempty"`
}

// Quiz is a generated set of questions
type Quiz struct {
	Type        string         `json:"type"`
	Questions   []QuizQuestion `json:"questions"`
	Placeholder bool           `json:"placeholder,omitempty"`
}

// Valid reports whether a question has what its quiz type needs
func (q QuizQuestion) Valid(quizType string) bool {
	if q.CorrectAnswer == "" {
		return false
	}
	if quizType == QuizFillInBlank {
		return q.TextBeforeBlank != "" || q.TextAfterBlank != ""
	}
	return q.Question != "" && len(q.Options) >= 2
}
