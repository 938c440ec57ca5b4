package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/singleflight"

	"github.com/Jadir123-w/repli-post/internal/agent/graph/conversations"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/prompts"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

// Session is the cached state of one thread. Turns on the same thread are
// serialized through its lock.
type Session struct {
	mu    sync.Mutex
	State *model.ConversationState
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager keeps the thread id to session map. The transcript store stays the
// source of truth; a missing session is rebuilt from it.
type Manager struct {
	messages *conversations.MessagesManager
	cvRepo   model.CVRepository
	prompt   model.PromptConfig

	mu       sync.RWMutex
	sessions map[string]*Session
	rebuilds singleflight.Group
}

func NewManager(messages *conversations.MessagesManager, cvRepo model.CVRepository, prompt model.PromptConfig) *Manager {
	return &Manager{
		messages: messages,
		cvRepo:   cvRepo,
		prompt:   prompt,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of threadID, rebuilding it from storage on first
// use. Concurrent first uses share one rebuild.
func (m *Manager) Get(ctx context.Context, threadID string) (*Session, error) {
	if s := m.lookup(threadID); s != nil {
		return s, nil
	}

	// shared by every waiting caller, so detached from the first caller's cancellation
	rebuildCtx := context.WithoutCancel(ctx)
	v, err, shared := m.rebuilds.Do(threadID, func() (any, error) {
		if s := m.lookup(threadID); s != nil {
			return s, nil
		}
		s, err := m.rebuild(rebuildCtx, threadID)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[threadID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logx.Debug().Str("thread_id", threadID).Msg("Session rebuild shared")
	}
	return v.(*Session), nil
}

// Create registers an empty session for a brand new thread.
func (m *Manager) Create(ctx context.Context, threadID string) (*Session, error) {
	system, err := prompts.RenderSystem(ctx, m.prompt, "", "")
	if err != nil {
		return nil, err
	}
	s := &Session{State: &model.ConversationState{
		ThreadID: threadID,
		Messages: []*schema.Message{schema.SystemMessage(system)},
	}}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[threadID]; ok {
		return existing, nil
	}
	m.sessions[threadID] = s
	return s, nil
}

// Len reports the number of cached sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RefreshSystemPrompt re-renders the leading system message with what is
// known about the user so far. Callers must hold the session lock.
func (m *Manager) RefreshSystemPrompt(ctx context.Context, state *model.ConversationState) error {
	system, err := prompts.RenderSystem(ctx, m.prompt, state.UserName, state.Country)
	if err != nil {
		return err
	}
	if len(state.Messages) > 0 && state.Messages[0] != nil && state.Messages[0].Role == schema.System {
		state.Messages[0] = schema.SystemMessage(system)
		return nil
	}
	state.Messages = append([]*schema.Message{schema.SystemMessage(system)}, state.Messages...)
	return nil
}

func (m *Manager) lookup(threadID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[threadID]
}

func (m *Manager) rebuild(ctx context.Context, threadID string) (*Session, error) {
	system, err := prompts.RenderSystem(ctx, m.prompt, "", "")
	if err != nil {
		return nil, err
	}
	msgs, userName, err := m.messages.Replay(ctx, threadID, system)
	if err != nil {
		return nil, fmt.Errorf("replay thread %s: %w", threadID, err)
	}

	state := &model.ConversationState{
		ThreadID: threadID,
		Messages: msgs,
		UserName: userName,
	}
	if m.cvRepo != nil {
		rec, err := m.cvRepo.GetCV(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("load cv of thread %s: %w", threadID, err)
		}
		if rec != nil {
			state.CVSummary = rec.CVSummary
			state.CVAnalysis = rec.CVAnalysis
			state.Country = rec.Country
			state.CountryVerified = rec.CountryVerified
		}
	}

	logx.Debug().
		Str("thread_id", threadID).
		Int("messages", len(msgs)).
		Bool("has_cv", state.CVSummary != "").
		Msg("Session rebuilt from storage")
	return &Session{State: state}, nil
}
