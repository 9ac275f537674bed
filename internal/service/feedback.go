package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/windfall/fluentmind/internal/errors"
)

const (
	defaultFeedbackScore = 50
	maxFeedbackItems     = 3
	defaultContext       = "general conversation"
)

// Feedback is the normalized tutoring reply for one piece of learner text.
type Feedback struct {
	CorrectedText     string   `json:"corrected_text"`
	Feedback          string   `json:"feedback"`
	PronunciationTips []string `json:"pronunciation_tips"`
	GrammarNotes      []string `json:"grammar_notes"`
	Score             int      `json:"score"`
}

// ParseFeedback decodes a model reply. The reply must be a JSON object; every
// field is then decoded on its own so one malformed field falls back to its
// default instead of failing the whole reply.
func ParseFeedback(raw, originalText string) (*Feedback, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return nil, errors.Upstream("feedback model returned malformed JSON", err)
	}
	if fields == nil {
		return nil, errors.Upstream("feedback model returned malformed JSON", fmt.Errorf("reply is null, not an object"))
	}

	fb := &Feedback{
		CorrectedText:     originalText,
		PronunciationTips: []string{},
		GrammarNotes:      []string{},
		Score:             defaultFeedbackScore,
	}

	if v, ok := decodeString(fields["corrected_text"]); ok {
		fb.CorrectedText = v
	}
	if v, ok := decodeString(fields["feedback"]); ok {
		fb.Feedback = v
	}
	fb.PronunciationTips = decodeList(fields["pronunciation_tips"])
	fb.GrammarNotes = decodeList(fields["grammar_notes"])
	if v, ok := decodeScore(fields["score"]); ok {
		fb.Score = v
	}

	return fb, nil
}

func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeString(raw json.RawMessage) (string, bool) {
	if absent(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeList accepts a list of strings; non-string entries are rendered as
// JSON text. Anything else yields an empty list.
func decodeList(raw json.RawMessage) []string {
	out := []string{}
	if absent(raw) {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		if len(out) == maxFeedbackItems {
			break
		}
		if s, ok := decodeString(item); ok {
			out = append(out, s)
			continue
		}
		out = append(out, string(item))
	}
	return out
}

func decodeScore(raw json.RawMessage) (int, bool) {
	if absent(raw) {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		// Some models quote the number.
		s, ok := decodeString(raw)
		if !ok {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	// Scores are stored in a 32-bit INTEGER column.
	rounded := math.RoundToEven(n)
	if rounded < math.MinInt32 || rounded > math.MaxInt32 {
		return 0, false
	}
	return int(rounded), true
}

// FeedbackPrompt builds the tutor instructions for typed text.
func FeedbackPrompt(targetLanguage, context string) string {
	if strings.TrimSpace(context) == "" {
		context = defaultContext
	}
	return fmt.Sprintf(`You are an expert language tutor for %s.
Analyze the following text from a language learner and provide constructive feedback.

Respond in JSON format with these fields:
- corrected_text: The grammatically correct version
- feedback: A friendly, encouraging summary of their performance (2-3 sentences)
- pronunciation_tips: List of specific pronunciation advice (max 3 items)
- grammar_notes: List of grammar corrections with explanations (max 3 items)
- score: An overall score from 1-100

Context: %s
Be encouraging and focus on the most impactful improvements.`, targetLanguage, context)
}

// PracticePrompt builds the tutor instructions for transcribed speech.
func PracticePrompt(targetLanguage, context string) string {
	prompt := fmt.Sprintf(`You are an expert language tutor for %s.
Analyze the following transcribed speech from a language learner.

Respond in JSON format with:
- corrected_text: The grammatically correct version
- feedback: Encouraging summary (2-3 sentences)
- pronunciation_tips: List of advice (max 3)
- grammar_notes: List of corrections (max 3)
- score: Score from 1-100`, targetLanguage)
	if strings.TrimSpace(context) != "" {
		prompt += "\n\nContext: " + context
	}
	return prompt
}
