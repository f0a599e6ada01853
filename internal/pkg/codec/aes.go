package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

const (
	// KeySize AES-256 密钥长度
	KeySize = 32
	// IVSize CBC 模式初始化向量长度
	IVSize = aes.BlockSize
)

var (
	ErrKeySize = errors.New("encryption secret must be 32 bytes long")
	ErrDecrypt = errors.New("decrypt message failed")
)

// Codec 消息正文加解密 (AES-256-CBC, PKCS#7)
// 每次加密生成新的随机 IV，密钥只读，可并发使用
type Codec struct {
	key  []byte
	rand io.Reader
}

// New 校验密钥长度并构造 Codec
func New(secret []byte) (*Codec, error) {
	if len(secret) != KeySize {
		return nil, errors.Wrapf(ErrKeySize, "got %d bytes", len(secret))
	}
	key := make([]byte, KeySize)
	copy(key, secret)
	return &Codec{key: key, rand: rand.Reader}, nil
}

// MustNew 启动期使用，密钥非法直接 panic
func MustNew(secret string) *Codec {
	c, err := New([]byte(secret))
	if err != nil {
		panic(err)
	}
	return c
}

// Encrypt 加密明文，返回十六进制密文与 IV
func (c *Codec) Encrypt(plaintext string) (ciphertext string, iv string, err error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", "", errors.Wrap(err, "init cipher")
	}

	ivBytes := make([]byte, IVSize)
	if _, err = io.ReadFull(c.rand, ivBytes); err != nil {
		return "", "", errors.Wrap(err, "generate iv")
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, ivBytes).CryptBlocks(out, padded)

	return hex.EncodeToString(out), hex.EncodeToString(ivBytes), nil
}

// Decrypt 解密十六进制密文
// IV 非法、密文被截断或填充校验失败时返回 ErrDecrypt
func (c *Codec) Decrypt(ciphertext string, iv string) (string, error) {
	ivBytes, err := hex.DecodeString(iv)
	if err != nil || len(ivBytes) != IVSize {
		return "", errors.Wrap(ErrDecrypt, "malformed iv")
	}

	data, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(ErrDecrypt, "malformed ciphertext")
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errors.Wrap(ErrDecrypt, "truncated ciphertext")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Wrap(err, "init cipher")
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, ivBytes).CryptBlocks(out, data)

	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return "", errors.Wrap(ErrDecrypt, "bad padding")
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
