package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kinds of mail the service sends, used to key captured test emails.
const (
	KindListingApproved = "listing_approved"
	KindListingRejected = "listing_rejected"
	KindUnknown         = "unknown"
)

// MockEmailTTL is how long captured emails stay readable.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key a captured email for recipient and kind is stored under.
func MockEmailKey(to, kind string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), kind)
}

// KindFromSubject maps a notification subject back to its kind.
func KindFromSubject(subject string) string {
	lower := strings.ToLower(subject)
	switch {
	case strings.HasSuffix(lower, "was approved"):
		return KindListingApproved
	case strings.HasSuffix(lower, "was rejected"):
		return KindListingRejected
	}
	return KindUnknown
}

// RedisSender captures emails in Redis so end-to-end tests can read them back
// through the service API instead of a real mailbox.
type RedisSender struct {
	client *redis.Client
	from   string
}

func NewRedisSender(client *redis.Client, from string) Sender {
	return &RedisSender{client: client, from: from}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients for %q", subject)
	}
	kind := KindFromSubject(subject)
	data, err := json.Marshal(map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.from,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
		"kind":    kind,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(to[0], kind)
	if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	log.Printf("Mock email stored in Redis key '%s' (Subject: %s)", key, subject)
	return nil
}
