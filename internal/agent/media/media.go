package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	errx "github.com/Jadir123-w/repli-post/internal/core/error"
	pkggemini "github.com/Jadir123-w/repli-post/pkg/gemini"
)

const (
	extractPrompt    = "Extrae todo el texto legible de este documento. Devuelve solo el texto, sin comentarios ni formato adicional."
	transcribePrompt = "Transcribe literalmente este audio en español. Devuelve solo la transcripción."
)

// allowedDocuments maps file extensions to the MIME type sent to the model.
var allowedDocuments = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// File is an uploaded document or audio clip.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// contentGenerator is the slice of the genai Models service used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Reader extracts text from documents and transcribes audio with Gemini.
type Reader struct {
	models   contentGenerator
	model    string
	maxBytes int64
}

func NewReader(client *genai.Client, model string, maxBytes int64) *Reader {
	return &Reader{models: client.Models, model: model, maxBytes: maxBytes}
}

// DocumentMIME validates the file name and returns the MIME type to send.
func DocumentMIME(name string) (string, error) {
	mime, ok := allowedDocuments[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", errx.ErrUnsupportedFile
	}
	return mime, nil
}

// ExtractText returns the text found in a PDF or image.
func (r *Reader) ExtractText(ctx context.Context, f File) (string, error) {
	mime, err := DocumentMIME(f.Name)
	if err != nil {
		return "", err
	}
	if err := r.checkSize(f); err != nil {
		return "", err
	}
	return r.generate(ctx, extractPrompt, mime, f.Data)
}

// Transcribe returns the transcript of an audio clip.
func (r *Reader) Transcribe(ctx context.Context, f File) (string, error) {
	if err := r.checkSize(f); err != nil {
		return "", err
	}
	mime := f.MIMEType
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(f.Data)
	}
	if !strings.HasPrefix(mime, "audio/") && !strings.HasPrefix(mime, "video/") {
		// browsers record webm/ogg; fall back to a generic audio type
		mime = "audio/webm"
	}
	return r.generate(ctx, transcribePrompt, mime, f.Data)
}

func (r *Reader) checkSize(f File) error {
	if len(f.Data) == 0 {
		return errx.ErrEmptyFile
	}
	if r.maxBytes > 0 && int64(len(f.Data)) > r.maxBytes {
		return errx.BadRequest(fmt.Sprintf("el archivo supera el tamaño máximo de %d MB", r.maxBytes>>20))
	}
	return nil
}

func (r *Reader) generate(ctx context.Context, prompt, mime string, data []byte) (string, error) {
	if r == nil || r.models == nil {
		return "", errors.New("media reader is not initialized")
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}
	resp, err := r.models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		return "", errx.WrapModel(fmt.Errorf("generate content: %w", err))
	}
	text := pkggemini.TextOf(resp)
	if text == "" {
		return "", errx.WrapModel(errors.New("gemini api returned empty response"))
	}
	return text, nil
}
