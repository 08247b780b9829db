package secret

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testCodec() *Codec {
	return NewCodecWithKey([]byte("0123456789abcdef0123456789abcdef"), testLogger())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := testCodec()
	require.True(t, codec.Available())

	for _, plaintext := range []string{"hunter2", "", "päßwörd with spaces", "enc:v1:lookalike"} {
		sealed, err := codec.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, IsSealed(sealed))

		opened, err := codec.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestEncryptProducesFreshBlobs(t *testing.T) {
	codec := testCodec()

	a, err := codec.Encrypt("hunter2")
	require.NoError(t, err)
	b, err := codec.Encrypt("hunter2")
	require.NoError(t, err)

	// Random nonces: equal plaintexts never share a blob.
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	codec := testCodec()

	_, err := codec.Decrypt("hunter2")
	assert.ErrorIs(t, err, ErrNotSealed)
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	codec := testCodec()

	sealed, err := codec.Encrypt("hunter2")
	require.NoError(t, err)

	tampered := sealed[:len(sealed)-2] + "xx"
	_, err = codec.Decrypt(tampered)
	assert.Error(t, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	sealed, err := testCodec().Encrypt("hunter2")
	require.NoError(t, err)

	other := NewCodecWithKey([]byte("ffffffffffffffffffffffffffffffff"), testLogger())
	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestUnavailableCodecRefusesToSeal(t *testing.T) {
	codec := NewCodecWithKey(nil, testLogger())
	assert.False(t, codec.Available())

	_, err := codec.Encrypt("hunter2")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = codec.Decrypt("enc:v1:whatever")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIsSealed(t *testing.T) {
	assert.True(t, IsSealed("enc:v1:abc"))
	assert.False(t, IsSealed("hunter2"))
	assert.False(t, IsSealed(""))
	assert.False(t, IsSealed("enc:v2"))
}
