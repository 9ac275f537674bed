package http

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/internal/errors"
	"github.com/windfall/fluentmind/internal/middleware"
	"github.com/windfall/fluentmind/internal/service"
	"github.com/windfall/fluentmind/pkg/response"
)

const multipartMemory = 8 << 20

// SpeechHandler handles the transcription, feedback and practice endpoints.
type SpeechHandler struct {
	errorResponder
	speech         *service.SpeechService
	identity       middleware.IdentityResolver
	validate       *validator.Validate
	maxUploadBytes int64
}

// NewSpeechHandler creates a new Speech handler.
func NewSpeechHandler(
	log zerolog.Logger,
	speech *service.SpeechService,
	identity middleware.IdentityResolver,
	maxUploadBytes int64,
	exposeCause bool,
) *SpeechHandler {
	return &SpeechHandler{
		errorResponder: errorResponder{log: log, exposeCause: exposeCause},
		speech:         speech,
		identity:       identity,
		validate:       newValidator(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Transcribe handles POST /api/v1/speech/transcribe
func (h *SpeechHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readAudio(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	result, err := h.speech.Transcribe(r.Context(), *upload)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Feedback handles POST /api/v1/speech/feedback
func (h *SpeechHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req service.FeedbackRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		h.handleError(w, r, errors.Validation("invalid request body"))
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "en"
	}

	if err := h.validate.Struct(req); err != nil {
		h.handleError(w, r, validationError(err))
		return
	}

	result, err := h.speech.Feedback(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Practice handles POST /api/v1/speech/practice
// The session is linked to the caller when a valid token is sent. The
// caller is resolved only after the upload passes validation, so a rejected
// file never reaches the identity provider.
func (h *SpeechHandler) Practice(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readAudio(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	opts := service.PracticeOptions{
		TargetLanguage: strings.TrimSpace(r.FormValue("target_language")),
		Context:        strings.TrimSpace(r.FormValue("context")),
	}
	if len(opts.TargetLanguage) > 32 || len(opts.Context) > 500 {
		h.handleError(w, r, errors.Validation("target_language or context too long"))
		return
	}

	owner, err := h.identity.ResolveOptional(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	result, err := h.speech.Practice(r.Context(), *upload, opts, owner)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// readAudio pulls the "file" part and checks it before buffering the bytes.
func (h *SpeechHandler) readAudio(w http.ResponseWriter, r *http.Request) (*service.AudioUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return nil, errors.Validation(fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
		case stderrors.Is(err, http.ErrNotMultipart), stderrors.Is(err, http.ErrMissingBoundary):
			return nil, errors.UnsupportedMedia("no file uploaded")
		default:
			return nil, errors.Validation("failed to parse multipart form")
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.UnsupportedMedia("no file uploaded")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := service.ValidateAudio(header.Filename, contentType); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Validation("failed to read audio file")
	}

	return &service.AudioUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.Validation("invalid request body")
	}

	fields := make(map[string]interface{}, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = fmt.Sprintf("failed on the '%s' tag", e.Tag())
	}
	return errors.Validation("validation failed").WithDetails(fields)
}
