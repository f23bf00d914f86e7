package crypto

import (
	"golang.org/x/crypto/argon2"
)

// Размеры ключевого материала (в байтах).
const (
	KeyLen     = 32 // AES-256
	SaltLen    = 16 // 128 бит
	minSaltLen = 16
	maxSaltLen = 32
)

// KDFParams — стоимостные параметры Argon2id.
// Значения по умолчанию соответствуют RFC 9106 (t=2, m=64MiB, p=4):
// одна деривация занимает ~100-300мс на обычном железе.
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKDFParams возвращает рекомендованные параметры деривации.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 2, MemoryKiB: 64 * 1024, Threads: 4}
}

// Normalized поднимает нулевые/заниженные параметры до рекомендованного
// минимума. Слабая деривация — регрессия безопасности, а не настройка.
func (p KDFParams) Normalized() KDFParams {
	d := DefaultKDFParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.MemoryKiB < d.MemoryKiB {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	return p
}

// DeriveKey выводит 32-байтовый симметричный ключ из пароля и соли (Argon2id).
// Детерминирован: одна и та же пара пароль+соль всегда даёт тот же ключ.
// Пароль никогда не логируется и не сохраняется.
func DeriveKey(password string, salt []byte, p KDFParams) ([]byte, error) {
	if password == "" {
		return nil, ErrInvalidInput
	}
	if len(salt) < minSaltLen || len(salt) > maxSaltLen {
		return nil, ErrInvalidInput
	}
	p = p.Normalized()
	return argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, KeyLen), nil
}

// Zeroize затирает буфер ключа нулями. Обязательный явный шаг
// перед освобождением памяти, не полагаемся на GC.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
