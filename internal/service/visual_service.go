package service

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"html"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"learnlink-server/internal/domain"
)

// minVisualText is the shortest text generate-visuals accepts
const minVisualText = 50

// VisualService serves the visual helper endpoints
type VisualService struct {
	files     *FileService
	generator *ContentGenerator
	logger    domain.Logger
}

// NewVisualService creates a visual helper service
func NewVisualService(files *FileService, generator *ContentGenerator, logger domain.Logger) *VisualService {
	return &VisualService{files: files, generator: generator, logger: logger}
}

// ImageForTopic looks up one educational image. placeholder is true when the
// placeholder image is returned instead of a search result.
func (s *VisualService) ImageForTopic(ctx context.Context, topic string) (url string, placeholder bool, err error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", false, domain.NewValidationError("topic", "no topic provided")
	}
	url, err = s.generator.SearchImage(ctx, topic)
	if err != nil {
		if errors.Is(err, domain.ErrGeneratorUnavailable) {
			s.logger.Debug("Image search not configured", "topic", topic)
		}
		return domain.PlaceholderImage, true, nil
	}
	return url, false, nil
}

// VisualConcepts extracts concepts from a stored file, or from topic when fileID is empty
func (s *VisualService) VisualConcepts(ctx context.Context, fileID, topic string) ([]domain.Concept, bool, error) {
	var text string
	switch {
	case strings.TrimSpace(fileID) != "":
		file, err := s.files.Get(ctx, fileID)
		if err != nil {
			return nil, false, err
		}
		text, err = s.files.extract(ctx, file)
		if err != nil {
			return nil, false, err
		}
	case strings.TrimSpace(topic) != "":
		text = strings.TrimSpace(topic)
	default:
		return nil, false, domain.NewValidationError("fileId", "no fileId or topic provided")
	}

	concepts, err := s.generator.Concepts(ctx, text)
	return concepts, err != nil, nil
}

// GenerateVisuals builds concepts and suggestions from free text
func (s *VisualService) GenerateVisuals(ctx context.Context, text string) (*domain.VisualContent, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minVisualText {
		return nil, domain.NewValidationError("text", "text is too short for analysis")
	}
	content, _ := s.generator.Visual(ctx, text)
	return content, nil
}

// ConceptSVG draws a 100x100 card for a concept: a circle whose hue comes from the md5 of
// the title, crossed strokes in a lighter shade and up to two initials.
func ConceptSVG(title string) []byte {
	sum := md5.Sum([]byte(title))
	hue := new(big.Int).Mod(new(big.Int).SetBytes(sum[:]), big.NewInt(360)).Int64()
	primary := fmt.Sprintf("hsl(%d, 70%%, 60%%)", hue)
	secondary := fmt.Sprintf("hsl(%d, 60%%, 70%%)", (hue+40)%360)

	return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">
  <rect width="100" height="100" fill="#f5f9ff" rx="10" ry="10"/>
  <circle cx="50" cy="50" r="30" fill="%s"/>
  <path d="M30 70 L70 30 M30 30 L70 70" stroke="%s" stroke-width="5" stroke-linecap="round"/>
  <text x="50" y="55" font-family="Arial" font-size="20" text-anchor="middle" fill="white" font-weight="bold">%s</text>
</svg>`, primary, secondary, html.EscapeString(initials(title))))
}

func initials(title string) string {
	var out []rune
	for _, word := range strings.Fields(title) {
		r, _ := utf8.DecodeRuneInString(word)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}
