package auth

import (
	"errors"
	"sync"

	"SecureNotes/internal/crypto"
)

// ErrNotAuthenticated — операция требует сессионного ключа, а его нет.
// Всегда лечится повторной аутентификацией.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// Session — единственный владелец сессионного ключа.
// Ключ живёт в памяти от успешной аутентификации до Clear()
// (logout/lock/выход из процесса) и никогда не персистится.
type Session struct {
	mu  sync.Mutex
	key []byte
}

// NewSession возвращает пустую (неаутентифицированную) сессию.
func NewSession() *Session {
	return &Session{}
}

// Cache сохраняет копию ключа. Прежний ключ, если был, затирается.
func (s *Session) Cache(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		crypto.Zeroize(s.key)
	}
	s.key = make([]byte, len(key))
	copy(s.key, key)
}

// Key возвращает активный ключ либо ErrNotAuthenticated.
func (s *Session) Key() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrNotAuthenticated
	}
	return s.key, nil
}

// Active сообщает, установлен ли ключ.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// Clear затирает буфер ключа нулями и освобождает его.
// Явный обязательный шаг на lock/logout/shutdown, включая аварийные пути.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		crypto.Zeroize(s.key)
		s.key = nil
	}
}
