package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileSender appends every message to a local file.
type FileSender struct {
	mu   sync.Mutex
	path string
}

// NewFileSender creates the file's directory if needed.
func NewFileSender(path string) (*FileSender, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", path, err)
	}
	return &FileSender{path: path}, nil
}

func (s *FileSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s to %v: %s ---\n", time.Now().UTC().Format(time.RFC3339Nano), to, subject)
	sb.Write(rawMessage)
	sb.WriteString("\n--- end ---\n\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	return nil
}
