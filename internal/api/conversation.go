package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Jadir123-w/repli-post/internal/agent/media"
	"github.com/Jadir123-w/repli-post/internal/agent/service"
	errx "github.com/Jadir123-w/repli-post/internal/core/error"
)

// ConversationService is what the HTTP layer needs from the agent.
type ConversationService interface {
	Start(ctx context.Context) (*service.TurnReply, error)
	SendText(ctx context.Context, threadID, text string) (*service.TurnReply, error)
	SendFile(ctx context.Context, threadID, text string, f media.File) (*service.FileReply, error)
	SendVoice(ctx context.Context, threadID string, f media.File) (*service.VoiceReply, error)
	History(ctx context.Context, threadID string) ([]service.HistoryEntry, error)
	Export(ctx context.Context, threadID string) (*service.ExportPaths, error)
}

type ConversationHandler struct {
	conv     ConversationService
	maxBytes int64
}

func NewConversationHandler(conv ConversationService, maxFileBytes int64) *ConversationHandler {
	return &ConversationHandler{conv: conv, maxBytes: maxFileBytes}
}

type textReq struct {
	ThreadID *string `json:"thread_id"`
	Message  *string `json:"message"`
}

// GET /conversation?thread_id=...&action=history|export
func (h *ConversationHandler) Get(c *gin.Context) {
	threadID := strings.TrimSpace(c.Query("thread_id"))
	if threadID == "" {
		RespondError(c, errx.ErrMissingThreadID)
		return
	}

	switch action := c.DefaultQuery("action", "history"); action {
	case "history":
		msgs, err := h.conv.History(c.Request.Context(), threadID)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, gin.H{"success": true, "thread_id": threadID, "messages": msgs})
	case "export":
		paths, err := h.conv.Export(c.Request.Context(), threadID)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, gin.H{
			"success":   true,
			"thread_id": threadID,
			"txt_file":  paths.TXT,
			"json_file": paths.JSON,
			"message":   "Conversación exportada correctamente",
		})
	default:
		RespondBadRequest(c, fmt.Sprintf("Acción no reconocida: '%s'. Las acciones válidas son 'history' y 'export'.", action))
	}
}

// POST /conversation
func (h *ConversationHandler) Post(c *gin.Context) {
	switch c.ContentType() {
	case gin.MIMEJSON:
		h.postJSON(c)
	case gin.MIMEMultipartPOSTForm:
		h.postMultipart(c)
	default:
		RespondError(c, errx.ErrUnsupportedContent)
	}
}

func (h *ConversationHandler) postJSON(c *gin.Context) {
	var req textReq
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "JSON inválido: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	if req.ThreadID == nil {
		reply, err := h.conv.Start(ctx)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, gin.H{"success": true, "thread_id": reply.ThreadID, "type": "text", "message": reply.Message})
		return
	}
	if req.Message == nil {
		RespondBadRequest(c, "Datos incompletos. Se requiere 'message' cuando se proporciona 'thread_id'.")
		return
	}
	if strings.TrimSpace(*req.ThreadID) == "" {
		RespondError(c, errx.ErrInvalidThreadID)
		return
	}

	reply, err := h.conv.SendText(ctx, *req.ThreadID, *req.Message)
	if err != nil {
		RespondError(c, err)
		return
	}
	respondText(c, reply)
}

func (h *ConversationHandler) postMultipart(c *gin.Context) {
	threadID := strings.TrimSpace(c.PostForm("thread_id"))
	message := c.PostForm("message")
	ctx := c.Request.Context()

	if fh, err := c.FormFile("audio"); err == nil {
		f, err := h.readUpload(fh)
		if err != nil {
			RespondError(c, err)
			return
		}
		reply, err := h.conv.SendVoice(ctx, threadID, f)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, gin.H{
			"success":    true,
			"thread_id":  reply.ThreadID,
			"type":       "voice",
			"transcript": reply.Transcript,
			"message":    reply.Message,
		})
		return
	}

	if fh, err := c.FormFile("file"); err == nil {
		if threadID == "" {
			RespondBadRequest(c, "Se requiere thread_id para procesar archivos")
			return
		}
		f, err := h.readUpload(fh)
		if err != nil {
			RespondError(c, err)
			return
		}
		reply, err := h.conv.SendFile(ctx, threadID, message, f)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, gin.H{
			"success":   true,
			"thread_id": reply.ThreadID,
			"type":      "file",
			"message":   reply.Message,
			"file_text": reply.FileText,
		})
		return
	}

	if threadID == "" {
		RespondBadRequest(c, "Se requiere thread_id")
		return
	}
	if strings.TrimSpace(message) == "" {
		RespondError(c, errx.ErrMissingMessage)
		return
	}
	reply, err := h.conv.SendText(ctx, threadID, message)
	if err != nil {
		RespondError(c, err)
		return
	}
	respondText(c, reply)
}

func respondText(c *gin.Context, reply *service.TurnReply) {
	RespondOK(c, gin.H{
		"success":            true,
		"thread_id":          reply.ThreadID,
		"type":               "text",
		"message":            reply.Message,
		"conversation_ended": false,
	})
}

func (h *ConversationHandler) readUpload(fh *multipart.FileHeader) (media.File, error) {
	if fh.Filename == "" {
		return media.File{}, errx.ErrEmptyFile
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return media.File{}, errx.BadRequest(fmt.Sprintf("el archivo supera el tamaño máximo de %d MB", h.maxBytes>>20))
	}
	src, err := fh.Open()
	if err != nil {
		return media.File{}, errx.BadRequest("no se pudo leer el archivo")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return media.File{}, errx.BadRequest("no se pudo leer el archivo")
	}
	return media.File{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
