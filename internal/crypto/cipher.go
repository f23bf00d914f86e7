package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// NonceLen — 96 бит, стандарт для GCM.
	NonceLen = 12
	// TagLen — длина тега аутентификации GCM.
	TagLen = 16
	// minEnvelopeLen — минимально возможный конверт: соль + nonce + тег.
	minEnvelopeLen = SaltLen + NonceLen + TagLen
)

var (
	// ErrInvalidInput — пустой пароль/плейнтекст или соль неверной длины.
	ErrInvalidInput = errors.New("crypto: invalid input")
	// ErrMalformedEnvelope — конверт короче минимально допустимого.
	ErrMalformedEnvelope = errors.New("crypto: malformed envelope")
	// ErrAuthenticationFailed — тег не сошёлся: неверный ключ либо данные повреждены.
	// Различить эти случаи принципиально невозможно, и мы не пытаемся.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")
)

// Seal шифрует plaintext ключом key (AES-256-GCM) и возвращает
// самоописывающийся конверт: соль ‖ nonce ‖ шифртекст+тег.
// Nonce генерируется заново при каждом вызове; внешний nonce не принимается
// намеренно — повторное использование под одним ключом ломает GCM.
func Seal(key, salt, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		// Пустое поле — ответственность кодека (см. FieldCodec), не шифра.
		return nil, ErrInvalidInput
	}
	if len(key) != KeyLen || len(salt) != SaltLen {
		return nil, ErrInvalidInput
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce generation: %w", err)
	}
	env := make([]byte, 0, SaltLen+NonceLen+len(plaintext)+TagLen)
	env = append(env, salt...)
	env = append(env, nonce...)
	env = gcm.Seal(env, nonce, plaintext, nil)
	return env, nil
}

// Open расшифровывает конверт, созданный Seal.
// Возвращает ErrMalformedEnvelope до разбора, если конверт слишком короткий,
// и ErrAuthenticationFailed при несовпадении тега.
func Open(key, envelope []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, ErrInvalidInput
	}
	if len(envelope) < minEnvelopeLen {
		return nil, ErrMalformedEnvelope
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := envelope[SaltLen : SaltLen+NonceLen]
	ciphertext := envelope[SaltLen+NonceLen:]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plain, nil
}

// EnvelopeSalt возвращает соль, записанную в конверт.
func EnvelopeSalt(envelope []byte) ([]byte, error) {
	if len(envelope) < minEnvelopeLen {
		return nil, ErrMalformedEnvelope
	}
	return envelope[:SaltLen], nil
}

// NewSalt генерирует криптографически стойкую случайную соль.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: salt generation: %w", err)
	}
	return salt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	return gcm, nil
}
