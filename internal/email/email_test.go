package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaudit/internal/config"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.calls++
	return s.err
}

func TestCompositeSender_TriesAllAndJoinsErrors(t *testing.T) {
	ok := &stubSender{}
	failing := &stubSender{err: errors.New("smtp down")}
	cs := NewCompositeSender(failing, nil, ok)

	err := cs.Send(context.Background(), []string{"a@example.com"}, "s", []byte("body"))
	require.Error(t, err)
	assert.ErrorIs(t, err, failing.err)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, failing.calls)

	assert.Error(t, NewCompositeSender().Send(context.Background(), nil, "s", nil))
}

func TestFileSender_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "out.log")
	fs, err := NewFileSender(path)
	require.NoError(t, err)

	require.NoError(t, fs.Send(context.Background(), []string{"a@example.com"}, "Your listing was approved", []byte("first")))
	require.NoError(t, fs.Send(context.Background(), []string{"b@example.com"}, "Your listing was rejected", []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
	assert.Contains(t, string(data), "Your listing was rejected")

	_, err = NewFileSender("  ")
	assert.Error(t, err)
}

func TestKindFromSubject(t *testing.T) {
	assert.Equal(t, KindListingApproved, KindFromSubject("Your listing \"Golf\" was approved"))
	assert.Equal(t, KindListingRejected, KindFromSubject("Your listing \"Golf\" was rejected"))
	assert.Equal(t, KindUnknown, KindFromSubject("Hello"))
	assert.Equal(t, "mockemail:uma@example.com:listing_approved", MockEmailKey("Uma@Example.com", KindListingApproved))
}

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	s := NewSMTPSender(&config.Config{SmtpFromAddress: "noreply@example.com"})
	_, isLogging := s.(*LoggingSender)
	assert.True(t, isLogging)
	assert.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "s", []byte("b")))
}
