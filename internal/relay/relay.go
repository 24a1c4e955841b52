// Package relay forwards chat prompts to an OpenAI-compatible completion
// API, keeping one persisted conversation per (room, participant) with a
// character budget and long-reply splitting.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// MaxSegmentLength caps one outgoing chat message.
	MaxSegmentLength = 1000

	truncateWarning = "(note: the oldest part of this conversation was dropped to fit the context budget)"
)

// ErrBusy is returned while a previous request for the same conversation is
// still in flight.
var ErrBusy = errors.New("previous request still processing")

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryStore persists conversations between process restarts.
type HistoryStore interface {
	Load(ctx context.Context, key string) ([]Message, error)
	Save(ctx context.Context, key string, history []Message) error
	Delete(ctx context.Context, key string) error
}

// Relay is the completion client plus per-conversation state.
type Relay struct {
	client   *openai.Client
	model    string
	maxChars int
	store    HistoryStore

	mu       sync.Mutex
	inFlight map[string]bool
}

// New builds a relay against an OpenAI-compatible endpoint.
func New(apiKey, baseURL, model string, maxChars int, store HistoryStore) *Relay {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Relay{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		maxChars: maxChars,
		store:    store,
		inFlight: make(map[string]bool),
	}
}

func conversationKey(room, user int64) string {
	return fmt.Sprintf("%d_%d", room, user)
}

// Reset drops the conversation history for one participant.
func (r *Relay) Reset(ctx context.Context, room, user int64) error {
	return r.store.Delete(ctx, conversationKey(room, user))
}

// Ask appends the prompt to the conversation, calls the API and returns the
// reply split into sendable segments. One request per conversation at a
// time; a second concurrent ask gets ErrBusy.
func (r *Relay) Ask(ctx context.Context, room, user int64, prompt string) ([]string, error) {
	key := conversationKey(room, user)

	r.mu.Lock()
	if r.inFlight[key] {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.inFlight[key] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inFlight, key)
		r.mu.Unlock()
	}()

	history, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	history = append(history, Message{Role: openai.ChatMessageRoleUser, Content: prompt})

	trimmed, truncated := truncate(history, r.maxChars)

	messages := make([]openai.ChatCompletionMessage, len(trimmed))
	for i, m := range trimmed {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: 0.5,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("empty completion response")
	}
	reply := resp.Choices[0].Message.Content

	history = append(history, Message{Role: openai.ChatMessageRoleAssistant, Content: reply})
	if err := r.store.Save(ctx, key, history); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	if truncated {
		reply = truncateWarning + "\n" + reply
	}
	return Split(reply, MaxSegmentLength), nil
}

// truncate drops the oldest turns until the history fits the character
// budget; a single oversized turn is cut down with an ellipsis.
func truncate(history []Message, maxChars int) ([]Message, bool) {
	out := make([]Message, len(history))
	copy(out, history)

	total := 0
	for _, m := range out {
		total += len(m.Content)
	}
	truncated := false
	for total > maxChars && len(out) > 1 {
		truncated = true
		total -= len(out[0].Content)
		out = out[1:]
	}
	if total > maxChars && len(out) == 1 {
		truncated = true
		content := out[0].Content
		keep := maxChars
		if keep > 3 {
			content = content[:runeBoundary(content, keep-3)] + "..."
		} else {
			content = content[:runeBoundary(content, keep)]
		}
		out[0] = Message{Role: out[0].Role, Content: content}
	}
	return out, truncated
}

// Split cuts text into segments of at most limit bytes, preferring natural
// boundaries: newline, sentence punctuation, comma, whitespace, in that
// order.
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var segments []string
	for len(text) > 0 {
		if len(text) <= limit {
			segments = append(segments, strings.TrimSpace(text))
			break
		}
		cut := naturalCut(text, limit)
		segments = append(segments, strings.TrimSpace(text[:cut]))
		text = text[cut:]
	}
	return segments
}

// naturalCut returns a byte offset to split at, never inside a rune: the
// end of the last boundary rune in the window, or the largest whole-rune
// prefix when no boundary exists.
func naturalCut(text string, limit int) int {
	end := runeBoundary(text, limit)
	window := text[:end]
	for _, set := range []string{"\n", "。！？；.!?;", "，,", " \t"} {
		if idx := strings.LastIndexAny(window, set); idx > 0 {
			_, size := utf8.DecodeRuneInString(window[idx:])
			return idx + size
		}
	}
	if end == 0 {
		// A limit smaller than the first rune still has to make progress.
		_, size := utf8.DecodeRuneInString(text)
		return size
	}
	return end
}

// runeBoundary backs limit off to the nearest rune boundary at or below it.
func runeBoundary(text string, limit int) int {
	if len(text) <= limit {
		return len(text)
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
