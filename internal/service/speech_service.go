package service

import (
	"context"
	"mime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/client"
	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/internal/repository"
)

// AllowedAudioTypes lists the upload content types accepted for speech.
var AllowedAudioTypes = map[string]struct{}{
	"audio/mpeg": {},
	"audio/wav":  {},
	"audio/webm": {},
	"audio/mp4":  {},
	"audio/m4a":  {},
	"audio/ogg":  {},
}

// Transcription is the speech-to-text result for one upload.
type Transcription = client.Transcription

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (*Transcription, error)
}

// FeedbackModel answers a tutor prompt with a JSON object.
type FeedbackModel interface {
	CompleteJSON(ctx context.Context, systemPrompt, text string) (string, error)
}

// AudioArchive stores uploads and returns a public URL for them.
type AudioArchive interface {
	Archive(ctx context.Context, filename, contentType string, audio []byte) (string, error)
}

// AudioUpload is one uploaded audio file.
type AudioUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FeedbackRequest asks for tutoring on typed text.
type FeedbackRequest struct {
	Text           string `json:"text" validate:"required"`
	TargetLanguage string `json:"target_language" validate:"omitempty,max=32"`
	Context        string `json:"context" validate:"omitempty,max=500"`
}

// FeedbackResult is Feedback echoed with the learner's text.
type FeedbackResult struct {
	OriginalText string `json:"original_text"`
	Feedback
}

// PracticeOptions tune the feedback step of a practice flow.
type PracticeOptions struct {
	TargetLanguage string
	Context        string
}

// PracticeResult is the outcome of a recorded practice flow.
type PracticeResult struct {
	SessionID         int64    `json:"session_id"`
	Transcription     string   `json:"transcription"`
	CorrectedText     string   `json:"corrected_text"`
	Feedback          string   `json:"feedback"`
	PronunciationTips []string `json:"pronunciation_tips"`
	GrammarNotes      []string `json:"grammar_notes"`
	Score             int      `json:"score"`
	AudioURL          *string  `json:"audio_url"`
}

// SpeechConfig wires SpeechService's collaborators. Nil capabilities are
// reported as Misconfigured when used.
type SpeechConfig struct {
	Transcriber      Transcriber
	Feedback         FeedbackModel
	FeedbackProvider string
	Archive          AudioArchive
	TargetLanguage   string
}

// SpeechService orchestrates transcription, feedback and recording.
type SpeechService struct {
	transcriber      Transcriber
	feedback         FeedbackModel
	feedbackProvider string
	archive          AudioArchive
	targetLanguage   string
	practice         *PracticeService
	log              zerolog.Logger
}

// NewSpeechService creates a new Speech service.
func NewSpeechService(cfg SpeechConfig, practice *PracticeService, log zerolog.Logger) *SpeechService {
	target := cfg.TargetLanguage
	if target == "" {
		target = "en"
	}
	provider := cfg.FeedbackProvider
	if provider == "" {
		provider = "openai"
	}

	return &SpeechService{
		transcriber:      cfg.Transcriber,
		feedback:         cfg.Feedback,
		feedbackProvider: provider,
		archive:          cfg.Archive,
		targetLanguage:   target,
		practice:         practice,
		log:              log,
	}
}

// ValidateAudio checks an upload's name and content type. Parameters such as
// "; codecs=opus" are ignored.
func ValidateAudio(filename, contentType string) error {
	if strings.TrimSpace(filename) == "" {
		return errors.UnsupportedMedia("no file uploaded")
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return errors.UnsupportedMedia("missing or invalid audio content type")
	}
	if _, ok := AllowedAudioTypes[strings.ToLower(mediaType)]; !ok {
		return errors.UnsupportedMedia("unsupported audio format, allowed: mp3, wav, webm, mp4, m4a, ogg").
			WithDetails(map[string]interface{}{"content_type": mediaType})
	}
	return nil
}

// Transcribe converts an upload to text.
func (s *SpeechService) Transcribe(ctx context.Context, upload AudioUpload) (*Transcription, error) {
	if err := ValidateAudio(upload.Filename, upload.ContentType); err != nil {
		return nil, err
	}
	if err := s.requireTranscriber(); err != nil {
		return nil, err
	}

	return s.transcribe(ctx, upload)
}

// Feedback asks the feedback model to review typed text.
func (s *SpeechService) Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.Validation("text is required")
	}
	if err := s.requireFeedback(); err != nil {
		return nil, err
	}

	target := req.TargetLanguage
	if target == "" {
		target = "en"
	}

	fb, err := s.generate(ctx, FeedbackPrompt(target, req.Context), req.Text)
	if err != nil {
		return nil, err
	}
	return &FeedbackResult{OriginalText: req.Text, Feedback: *fb}, nil
}

// Practice runs transcribe, feedback, archive and record for one upload. The
// session is only recorded when both upstream steps succeed.
func (s *SpeechService) Practice(ctx context.Context, upload AudioUpload, opts PracticeOptions, owner *repository.User) (*PracticeResult, error) {
	if err := ValidateAudio(upload.Filename, upload.ContentType); err != nil {
		return nil, err
	}
	if err := s.requireTranscriber(); err != nil {
		return nil, err
	}
	if err := s.requireFeedback(); err != nil {
		return nil, err
	}

	transcript, err := s.transcribe(ctx, upload)
	if err != nil {
		return nil, err
	}

	target := opts.TargetLanguage
	if target == "" {
		target = s.targetLanguage
	}
	fb, err := s.generate(ctx, PracticePrompt(target, opts.Context), transcript.Text)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("transcription", transcript.Text).
			Msg("feedback failed, practice session not recorded")
		return nil, err
	}

	audioURL := s.archiveAudio(ctx, upload)

	score := fb.Score
	session, err := s.practice.Record(ctx, RecordInput{
		Transcription: transcript.Text,
		CorrectedText: &fb.CorrectedText,
		Feedback:      &fb.Feedback,
		Score:         &score,
		AudioURL:      audioURL,
	}, owner)
	if err != nil {
		return nil, err
	}

	return &PracticeResult{
		SessionID:         session.ID,
		Transcription:     transcript.Text,
		CorrectedText:     fb.CorrectedText,
		Feedback:          fb.Feedback,
		PronunciationTips: fb.PronunciationTips,
		GrammarNotes:      fb.GrammarNotes,
		Score:             fb.Score,
		AudioURL:          audioURL,
	}, nil
}

func (s *SpeechService) requireTranscriber() error {
	if s.transcriber == nil {
		return errors.Misconfigured("OpenAI API key not configured")
	}
	return nil
}

func (s *SpeechService) requireFeedback() error {
	if s.feedback != nil {
		return nil
	}
	if s.feedbackProvider == "gemini" {
		return errors.Misconfigured("Gemini API key not configured")
	}
	return errors.Misconfigured("OpenAI API key not configured")
}

func (s *SpeechService) transcribe(ctx context.Context, upload AudioUpload) (*Transcription, error) {
	t, err := s.transcriber.Transcribe(ctx, upload.Filename, upload.Data)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.Upstream("transcription failed", err)
	}
	return t, nil
}

func (s *SpeechService) generate(ctx context.Context, prompt, text string) (*Feedback, error) {
	raw, err := s.feedback.CompleteJSON(ctx, prompt, text)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.Upstream("feedback generation failed", err)
	}
	return ParseFeedback(raw, text)
}

// archiveAudio never fails the flow; a failed upload leaves the URL unset.
func (s *SpeechService) archiveAudio(ctx context.Context, upload AudioUpload) *string {
	if s.archive == nil {
		return nil
	}

	url, err := s.archive.Archive(ctx, upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		s.log.Error().Err(err).Str("filename", upload.Filename).Msg("failed to archive practice audio")
		return nil
	}
	return &url
}
