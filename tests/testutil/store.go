// Package testutil provides shared helpers for store tests.
package testutil

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/secret"
	"github.com/milchgeldkassierer/SmartMailSorter-sub003/internal/store"
)

// TestKey is the fixed credential master key used by test codecs.
var TestKey = []byte("0123456789abcdef0123456789abcdef")

// NewLogger returns a logger that discards all output.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewTestCodec returns a codec with a fixed master key, always
// available, independent of any platform secret store.
func NewTestCodec(t *testing.T) *secret.Codec {
	t.Helper()
	return secret.NewCodecWithKey(TestKey, NewLogger())
}

// NewTestStore creates an in-memory SQLiteStore with all migrations
// applied and an always-available credential codec. It automatically
// closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return NewTestStoreWithCipher(t, NewTestCodec(t))
}

// NewTestStoreWithCipher creates an in-memory SQLiteStore using the
// given credential cipher.
func NewTestStoreWithCipher(t *testing.T, cipher store.CredentialCipher) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", cipher, NewLogger())
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
