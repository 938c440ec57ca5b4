package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/graph/conversations"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
	"github.com/Jadir123-w/repli-post/internal/agent/repo"
)

var testPrompt = model.PromptConfig{AssistantName: "Geraldine", ProductName: "RepliKers"}

type countingRepo struct {
	*repo.MemoryConversationRepository
	loads atomic.Int32
}

func (r *countingRepo) LoadHistory(ctx context.Context, threadID string) (*model.ConversationHistory, error) {
	r.loads.Add(1)
	time.Sleep(10 * time.Millisecond)
	return r.MemoryConversationRepository.LoadHistory(ctx, threadID)
}

func TestGetRebuildsFromStorage(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryConversationRepository()
	mm := conversations.NewMessagesManager(store, testPrompt)
	_ = mm.SaveUserMessage(ctx, "t1", "Ana", "Hola")
	_ = mm.SaveResponse(ctx, "t1", "Hola Ana")
	analysis := &model.CVAnalysis{Success: true}
	_ = store.SaveCV(ctx, &model.CVRecord{ThreadID: "t1", CVSummary: "cv", CVAnalysis: analysis})

	m := NewManager(mm, store, testPrompt)
	s, err := m.Get(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	st := s.State
	if len(st.Messages) != 3 || st.Messages[0].Role != schema.System {
		t.Fatalf("unexpected messages: %v", st.Messages)
	}
	if st.UserName != "Ana" || st.CVSummary != "cv" || st.CVAnalysis == nil || !st.CVAnalysis.Success {
		t.Fatalf("state not restored: %+v", st)
	}

	again, _ := m.Get(ctx, "t1")
	if again != s {
		t.Fatal("second Get should return the cached session")
	}
}

func TestConcurrentGetSharesRebuild(t *testing.T) {
	ctx := context.Background()
	store := &countingRepo{MemoryConversationRepository: repo.NewMemoryConversationRepository()}
	m := NewManager(conversations.NewMessagesManager(store, testPrompt), store, testPrompt)

	var wg sync.WaitGroup
	got := make([]*Session, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get(ctx, "t2")
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = s
		}(i)
	}
	wg.Wait()

	if n := store.loads.Load(); n != 1 {
		t.Fatalf("history loaded %d times, want 1", n)
	}
	for _, s := range got {
		if s != got[0] {
			t.Fatal("goroutines received different sessions")
		}
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d", m.Len())
	}
}

func TestRefreshSystemPrompt(t *testing.T) {
	ctx := context.Background()
	m := NewManager(conversations.NewMessagesManager(repo.NewMemoryConversationRepository(), testPrompt), nil, testPrompt)

	s, err := m.Create(ctx, "t3")
	if err != nil {
		t.Fatal(err)
	}
	st := s.State
	st.Messages = append(st.Messages, schema.UserMessage("Hola"))
	st.UserName = "Luis"
	st.Country = "Chile"
	if err := m.RefreshSystemPrompt(ctx, st); err != nil {
		t.Fatal(err)
	}
	if len(st.Messages) != 2 || st.Messages[0].Role != schema.System {
		t.Fatalf("unexpected messages: %v", st.Messages)
	}
	first := st.Messages[0].Content
	if !strings.Contains(first, "Luis") || !strings.Contains(first, "País verificado del usuario: Chile") {
		t.Fatalf("system prompt missing user facts: %q", first)
	}
}

type ctxAwareRepo struct {
	*repo.MemoryConversationRepository
}

func (r *ctxAwareRepo) LoadHistory(ctx context.Context, threadID string) (*model.ConversationHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.MemoryConversationRepository.LoadHistory(ctx, threadID)
}

func TestSharedRebuildIgnoresCallerCancellation(t *testing.T) {
	store := &ctxAwareRepo{MemoryConversationRepository: repo.NewMemoryConversationRepository()}
	_ = store.AddMessage(context.Background(), &model.PersistedMessage{ThreadID: "t4", Role: schema.User, Content: "Hola"})
	m := NewManager(conversations.NewMessagesManager(store, testPrompt), store, testPrompt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := m.Get(ctx, "t4")
	if err != nil {
		t.Fatalf("Get with cancelled caller: %v", err)
	}
	if len(s.State.Messages) != 2 {
		t.Fatalf("unexpected messages: %v", s.State.Messages)
	}
}
