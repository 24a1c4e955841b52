// Package fetch talks to a companion download service over websocket: the
// bot sends a numeric resource id, the service streams status updates and
// finally reports the produced file path.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrBusy means the concurrent download cap is reached.
	ErrBusy = errors.New("too many downloads in progress")
	// ErrDuplicate means the same id is already being fetched.
	ErrDuplicate = errors.New("this id is already being fetched")
)

type request struct {
	ID int64 `json:"id"`
}

type statusUpdate struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

// Progress is a human-readable intermediate status line.
type Progress struct {
	Text string
}

// Fetcher dials the download service once per request and tracks in-flight
// work so the same resource is not fetched twice at once.
type Fetcher struct {
	host      string
	maxActive int
	dialer    *websocket.Dialer

	mu     sync.Mutex
	active map[int64]bool
}

func New(host string, maxActive int) *Fetcher {
	return &Fetcher{
		host:      host,
		maxActive: maxActive,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		active: make(map[int64]bool),
	}
}

// Fetch requests resource id from the service, pushing intermediate status
// lines to progress, and returns the path of the finished file. progress may
// be nil.
func (f *Fetcher) Fetch(ctx context.Context, id int64, progress func(Progress)) (string, error) {
	f.mu.Lock()
	if f.active[id] {
		f.mu.Unlock()
		return "", ErrDuplicate
	}
	if len(f.active) >= f.maxActive {
		f.mu.Unlock()
		return "", ErrBusy
	}
	f.active[id] = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.active, id)
		f.mu.Unlock()
	}()

	url := fmt.Sprintf("ws://%s/ws/fetch", f.host)
	conn, _, err := f.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return "", fmt.Errorf("dial download service: %w", err)
	}
	defer conn.Close()

	// Closing the connection is the only way to unblock a pending read
	// once the caller gives up.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	if err := conn.WriteJSON(request{ID: id}); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	// The service drives the conversation; we read until a terminal status.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("read status: %w", err)
		}
		var update statusUpdate
		if err := json.Unmarshal(raw, &update); err != nil {
			return "", fmt.Errorf("decode status: %w", err)
		}
		switch update.Status {
		case "error":
			if update.Message == "" {
				update.Message = "download failed"
			}
			return "", errors.New(update.Message)
		case "already_downloading":
			return "", ErrDuplicate
		case "downloading", "compressing":
			if progress != nil {
				progress(Progress{Text: statusText(update)})
			}
		case "success":
			if update.FilePath == "" {
				return "", errors.New("service reported success without a file path")
			}
			return update.FilePath, nil
		default:
			// Unknown statuses are forwarded verbatim and skipped.
			if progress != nil && update.Message != "" {
				progress(Progress{Text: update.Message})
			}
		}
	}
}

func statusText(u statusUpdate) string {
	if u.Message != "" {
		return u.Message
	}
	switch u.Status {
	case "downloading":
		return "Downloading..."
	case "compressing":
		return "Compressing..."
	}
	return u.Status
}
