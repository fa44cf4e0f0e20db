package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/mastery-service/internal/models"
)

// ExtractJSONObject pulls the first balanced {...} substring out of a
// free-form generator response. Fenced code blocks and surrounding prose
// are tolerated; string literals inside the object are respected so braces
// in text do not unbalance the scan.
func ExtractJSONObject(raw string) (string, error) {
	s := raw
	// A fenced block, when present, narrows the search window.
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = rest[:end]
		} else {
			s = rest
		}
	}

	begin := strings.IndexByte(s, '{')
	if begin < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := begin; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[begin : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

type flashcardsPayload struct {
	Flashcards []models.Flashcard `json:"flashcards"`
}

// ParseFlashcards extracts the flashcards shape from a raw response.
func ParseFlashcards(raw string) ([]models.Flashcard, error) {
	object, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	var payload flashcardsPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if len(payload.Flashcards) == 0 {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no flashcards in response")}
	}
	return payload.Flashcards, nil
}

// ParseReport extracts the detailed assessment report shape from a raw
// response.
func ParseReport(raw string) (*models.AssessmentReport, error) {
	object, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	var report models.AssessmentReport
	if err := json.Unmarshal([]byte(object), &report); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &report, nil
}

// ParseQuestions extracts a generated question set from a raw response.
type questionsPayload struct {
	Questions []models.Question `json:"questions"`
}

func ParseQuestions(raw string) ([]models.Question, error) {
	object, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	var payload questionsPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if len(payload.Questions) == 0 {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no questions in response")}
	}
	return payload.Questions, nil
}
