package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/graph/conversations"
	errx "github.com/Jadir123-w/repli-post/internal/core/error"
)

// HistoryEntry is one transcript line as returned to API callers.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History returns the role/content pairs of a thread in order.
func (c *Conversation) History(ctx context.Context, threadID string) ([]HistoryEntry, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, errx.ErrMissingThreadID
	}
	records, err := c.messages.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		out = append(out, HistoryEntry{Role: string(rec.Role), Content: rec.Content})
	}
	return out, nil
}

// ExportPaths are the files written by Export.
type ExportPaths struct {
	TXT  string
	JSON string
}

// Export writes the transcript as conversation_<id>.txt and .json under the
// export directory and marks the thread as completed.
func (c *Conversation) Export(ctx context.Context, threadID string) (*ExportPaths, error) {
	if strings.ContainsAny(threadID, `/\`) || strings.Contains(threadID, "..") {
		return nil, errx.ErrInvalidThreadID
	}
	entries, err := c.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	paths := &ExportPaths{
		TXT:  filepath.Join(c.exportDir, "conversation_"+threadID+".txt"),
		JSON: filepath.Join(c.exportDir, "conversation_"+threadID+".json"),
	}

	var b strings.Builder
	for _, e := range entries {
		speaker := c.assistant
		if e.Role == string(schema.User) {
			speaker = conversations.DefaultUserName
		}
		fmt.Fprintf(&b, "%s: %s\n\n", speaker, e.Content)
	}
	if err := os.WriteFile(paths.TXT, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("write txt export: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	if err := os.WriteFile(paths.JSON, data, 0o644); err != nil {
		return nil, fmt.Errorf("write json export: %w", err)
	}
	if err := c.messages.Finalize(ctx, threadID); err != nil {
		return nil, err
	}
	return paths, nil
}
