package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/Jadir123-w/repli-post/internal/agent/graph"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/conversations"
	"github.com/Jadir123-w/repli-post/internal/agent/media"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
	"github.com/Jadir123-w/repli-post/internal/agent/session"
	errx "github.com/Jadir123-w/repli-post/internal/core/error"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

const (
	// Greeting opens every thread started without a user message.
	Greeting = "Hola, me gustaría recibir ayuda."
	// NoReply is persisted when a turn ends without assistant text.
	NoReply = "Lo siento, no pude generar una respuesta."
)

var timeNow = func() time.Time { return time.Now().UTC() }

// MediaReader turns uploaded files into text.
type MediaReader interface {
	ExtractText(ctx context.Context, f media.File) (string, error)
	Transcribe(ctx context.Context, f media.File) (string, error)
}

// Deps groups the collaborators of the conversation service.
type Deps struct {
	Sessions  *session.Manager
	Messages  *conversations.MessagesManager
	CVRepo    model.CVRepository
	Runner    graph.Runner
	Media     MediaReader
	ExportDir string
	// AssistantName labels assistant lines in text exports.
	AssistantName string
}

// Conversation runs user turns against the graph and keeps the transcript.
type Conversation struct {
	sessions  *session.Manager
	messages  *conversations.MessagesManager
	cvRepo    model.CVRepository
	runner    graph.Runner
	media     MediaReader
	exportDir string
	assistant string
}

func NewConversation(deps Deps) *Conversation {
	return &Conversation{
		sessions:  deps.Sessions,
		messages:  deps.Messages,
		cvRepo:    deps.CVRepo,
		runner:    deps.Runner,
		media:     deps.Media,
		exportDir: deps.ExportDir,
		assistant: deps.AssistantName,
	}
}

// TurnReply is the outcome of one user turn.
type TurnReply struct {
	ThreadID string
	Message  string
	Degraded bool
}

// FileReply is a turn driven by an uploaded document.
type FileReply struct {
	TurnReply
	FileText string
}

// VoiceReply is a turn driven by an audio clip.
type VoiceReply struct {
	TurnReply
	Transcript string
}

// NewThreadID returns "<prefix>_" followed by 8 hex characters.
func NewThreadID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + id[:8]
}

// Start opens a new thread with the standard greeting.
func (c *Conversation) Start(ctx context.Context) (*TurnReply, error) {
	threadID := NewThreadID("api")
	sess, err := c.sessions.Create(ctx, threadID)
	if err != nil {
		return nil, err
	}
	logx.Info().Str("thread_id", threadID).Msg("Conversation started")
	return c.runTurn(ctx, sess, Greeting)
}

// SendText runs one text turn on an existing or persisted thread.
func (c *Conversation) SendText(ctx context.Context, threadID, text string) (*TurnReply, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, errx.ErrInvalidThreadID
	}
	if strings.TrimSpace(text) == "" {
		return nil, errx.ErrMissingMessage
	}
	sess, err := c.sessions.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return c.runTurn(ctx, sess, text)
}

// SendFile extracts the text of a document and runs a text turn with it.
func (c *Conversation) SendFile(ctx context.Context, threadID, text string, f media.File) (*FileReply, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, errx.ErrMissingThreadID
	}
	fileText, err := c.media.ExtractText(ctx, f)
	if err != nil {
		return nil, err
	}

	reply, err := c.SendText(ctx, threadID, combineFileMessage(text, f.Name, fileText))
	if err != nil {
		return nil, err
	}
	return &FileReply{TurnReply: *reply, FileText: fileText}, nil
}

// SendVoice transcribes an audio clip and runs a text turn with it. A new
// voice thread id is generated when threadID is empty.
func (c *Conversation) SendVoice(ctx context.Context, threadID string, f media.File) (*VoiceReply, error) {
	if strings.TrimSpace(threadID) == "" {
		threadID = NewThreadID("voice")
	}
	transcript, err := c.media.Transcribe(ctx, f)
	if err != nil {
		return nil, err
	}

	reply, err := c.SendText(ctx, threadID, transcript)
	if err != nil {
		return nil, err
	}
	return &VoiceReply{TurnReply: *reply, Transcript: transcript}, nil
}

func combineFileMessage(text, name, fileText string) string {
	block := fmt.Sprintf("[Contenido extraído del archivo '%s']:\n\n%s", name, fileText)
	if strings.TrimSpace(text) == "" {
		return block
	}
	return strings.TrimSpace(text) + "\n\n" + block
}

type stateMark struct {
	userName        string
	cvSummary       string
	cvAnalysis      *model.CVAnalysis
	country         string
	countryVerified bool
}

func markOf(st *model.ConversationState) stateMark {
	return stateMark{
		userName:        st.UserName,
		cvSummary:       st.CVSummary,
		cvAnalysis:      st.CVAnalysis,
		country:         st.Country,
		countryVerified: st.CountryVerified,
	}
}

func (c *Conversation) runTurn(ctx context.Context, sess *session.Session, text string) (*TurnReply, error) {
	sess.Lock()
	defer sess.Unlock()

	st := sess.State
	before := markOf(st)

	if err := c.messages.SaveUserMessage(ctx, st.ThreadID, st.UserName, text); err != nil {
		return nil, err
	}
	if err := c.sessions.RefreshSystemPrompt(ctx, st); err != nil {
		logx.Warn().Err(err).Str("thread_id", st.ThreadID).Msg("System prompt refresh failed, keeping previous prompt")
	}

	res, err := c.runner.Invoke(ctx, model.TurnInput{Conversation: st, Message: schema.UserMessage(text)})
	if err != nil {
		return nil, err
	}

	reply := res.Reply
	if strings.TrimSpace(reply) == "" {
		reply = NoReply
	}
	seal(st, reply)

	if err := c.messages.SaveResponse(ctx, st.ThreadID, reply); err != nil {
		return nil, err
	}
	c.persistChanges(ctx, st, before)

	logx.Debug().
		Str("thread_id", st.ThreadID).
		Bool("degraded", res.Degraded).
		Float64("cost_usd", res.TotalCostUSD).
		Str("reply", logx.Truncate(reply, 200)).
		Msg("Turn completed")
	return &TurnReply{ThreadID: st.ThreadID, Message: reply, Degraded: res.Degraded}, nil
}

// seal reduces the in-memory sequence to what the transcript replays into:
// the turn ends with exactly the persisted assistant reply.
func seal(st *model.ConversationState, reply string) {
	msgs := conversations.Compact(st.Messages)
	lastUser := -1
	for i, m := range msgs {
		if m.Role == schema.User {
			lastUser = i
		}
	}
	msgs = msgs[:lastUser+1]
	st.Messages = append(msgs, schema.AssistantMessage(reply, nil))
}

func (c *Conversation) persistChanges(ctx context.Context, st *model.ConversationState, before stateMark) {
	if st.UserName != "" && st.UserName != before.userName {
		if err := c.messages.RenameUser(ctx, st.ThreadID, st.UserName); err != nil {
			logx.Warn().Err(err).Str("thread_id", st.ThreadID).Msg("Failed to update user name on transcript")
		}
	}
	if c.cvRepo == nil {
		return
	}
	if st.CVSummary == before.cvSummary && st.CVAnalysis == before.cvAnalysis &&
		st.Country == before.country && st.CountryVerified == before.countryVerified {
		return
	}
	rec := &model.CVRecord{
		ThreadID:        st.ThreadID,
		CVSummary:       st.CVSummary,
		CVAnalysis:      st.CVAnalysis,
		Country:         st.Country,
		CountryVerified: st.CountryVerified,
		Timestamp:       timeNow(),
	}
	if err := c.cvRepo.SaveCV(ctx, rec); err != nil {
		logx.Warn().Err(err).Str("thread_id", st.ThreadID).Msg("Failed to save thread profile")
	}
}
