package domain

import (
	"context"
	"sort"
	"time"
)

// MaxQuizHistory caps the effectiveness history
const MaxQuizHistory = 50

// DefaultPreferredStyle is returned when a user never set one
const DefaultPreferredStyle = "visual"

// StyleScore is the running quiz average for one learning style
type StyleScore struct {
	TotalScore   float64 `json:"totalScore"`
	QuizCount    int     `json:"quizCount"`
	AverageScore float64 `json:"averageScore"`
}

// EffectivenessEntry is one quiz result attributed to a learning style
type EffectivenessEntry struct {
	LearningStyle string  `json:"learningStyle"`
	Score         float64 `json:"score"`
	QuizID        string  `json:"quizId,omitempty"`
	DocumentID    string  `json:"documentId,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// Preferences holds a user's style settings and effectiveness tracking
type Preferences struct {
	UserID        string                `json:"userId"`
	SchemaVersion int                   `json:"schemaVersion"`
	DefaultStyle  string                `json:"defaultStyle,omitempty"`
	SubjectStyles map[string]string     `json:"subjectStyles,omitempty"`
	StyleScores   map[string]StyleScore `json:"styleScores,omitempty"`
	QuizHistory   []EffectivenessEntry  `json:"quizHistory,omitempty"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// SubjectPreference is one subject to style mapping
type SubjectPreference struct {
	Subject       string `json:"subject"`
	LearningStyle string `json:"learningStyle"`
}

// StyleEffectiveness is the per-style summary returned to clients
type StyleEffectiveness struct {
	Style        string  `json:"style"`
	AverageScore float64 `json:"averageScore"`
	QuizCount    int     `json:"quizCount"`
}

// PreferenceRepository persists preferences, one record per user
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Save(ctx context.Context, prefs *Preferences) error
}

// RecordScore folds a quiz result into the running averages
func (p *Preferences) RecordScore(entry EffectivenessEntry) {
	if p.StyleScores == nil {
		p.StyleScores = map[string]StyleScore{}
	}
	s := p.StyleScores[entry.LearningStyle]
	s.TotalScore += entry.Score
	s.QuizCount++
	s.AverageScore = s.TotalScore / float64(s.QuizCount)
	p.StyleScores[entry.LearningStyle] = s

	p.QuizHistory = append(p.QuizHistory, entry)
	if len(p.QuizHistory) > MaxQuizHistory {
		p.QuizHistory = p.QuizHistory[len(p.QuizHistory)-MaxQuizHistory:]
	}
}

// Subjects lists subject preferences sorted by subject
func (p *Preferences) Subjects() []SubjectPreference {
	out := make([]SubjectPreference, 0, len(p.SubjectStyles))
	for subject, style := range p.SubjectStyles {
		out = append(out, SubjectPreference{Subject: subject, LearningStyle: style})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// Effectiveness returns per-style averages and the style with the best average above zero
func (p *Preferences) Effectiveness() ([]StyleEffectiveness, string) {
	styles := make([]StyleEffectiveness, 0, len(p.StyleScores))
	for style, s := range p.StyleScores {
		styles = append(styles, StyleEffectiveness{Style: style, AverageScore: s.AverageScore, QuizCount: s.QuizCount})
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i].Style < styles[j].Style })

	recommended := ""
	best := 0.0
	for _, s := range styles {
		if s.AverageScore > best {
			best = s.AverageScore
			recommended = s.Style
		}
	}
	return styles, recommended
}
