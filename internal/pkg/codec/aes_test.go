package codec

import (
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New([]byte(testSecret))
	require.NoError(t, err)
	return c
}

func TestNew_KeySize(t *testing.T) {
	for _, secret := range []string{"", "short", testSecret + "x"} {
		_, err := New([]byte(secret))
		assert.True(t, errors.Is(err, ErrKeySize), "secret len %d", len(secret))
	}
	assert.Panics(t, func() { MustNew("too-short") })
	assert.NotPanics(t, func() { MustNew(testSecret) })
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	cases := []string{
		"",
		"hi",
		"exactly 16 bytes",
		"你好，世界",
		strings.Repeat("long message ", 100),
	}
	for _, plain := range cases {
		ct, iv, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.Len(t, iv, IVSize*2)

		got, err := c.Decrypt(ct, iv)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncrypt_FreshIV(t *testing.T) {
	c := newTestCodec(t)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		_, iv, err := c.Encrypt("same text")
		require.NoError(t, err)
		_, dup := seen[iv]
		require.False(t, dup, "iv reused: %s", iv)
		seen[iv] = struct{}{}
	}
}

func TestDecrypt_WrongIV(t *testing.T) {
	c := newTestCodec(t)
	plain := "the quick brown fox jumps over the lazy dog"
	ct, _, err := c.Encrypt(plain)
	require.NoError(t, err)

	_, otherIV, err := c.Encrypt("other")
	require.NoError(t, err)

	got, err := c.Decrypt(ct, otherIV)
	if err == nil {
		assert.NotEqual(t, plain, got)
	} else {
		assert.True(t, errors.Is(err, ErrDecrypt))
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	c := newTestCodec(t)
	ct, iv, err := c.Encrypt("payload")
	require.NoError(t, err)

	cases := map[string][2]string{
		"bad iv hex":        {ct, "zz"},
		"short iv":          {ct, "00"},
		"empty ciphertext":  {"", iv},
		"truncated":         {ct[:len(ct)-2], iv},
		"not hex":           {"nothex!!", iv},
		"undecryptable raw": {"deadbeef", strings.Repeat("00", 16)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(in[0], in[1])
			assert.True(t, errors.Is(err, ErrDecrypt), "got %v", err)
		})
	}
}

func TestCodec_Concurrent(t *testing.T) {
	c := newTestCodec(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ct, iv, err := c.Encrypt("concurrent")
			if !assert.NoError(t, err) {
				return
			}
			got, err := c.Decrypt(ct, iv)
			assert.NoError(t, err)
			assert.Equal(t, "concurrent", got)
		}()
	}
	wg.Wait()
}
