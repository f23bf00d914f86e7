package auth

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"SecureNotes/internal/crypto"
)

const (
	credentialFile = "auth.json"
	schemaVersion  = 1

	// verifierPlaintext — фиксированное значение, запечатанное производным
	// ключом при установке пароля. Неверный пароль проявляется как
	// несовпадение GCM-тега при открытии верификатора; ни пароль, ни ключ
	// в записи не хранятся.
	verifierPlaintext = "securenotes-key-verifier-v1"

	// Политика блокировки по умолчанию.
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 300 * time.Second
)

var (
	// ErrNotConfigured — верификация до первичной установки пароля.
	ErrNotConfigured = errors.New("auth: master password is not configured")
	// ErrAlreadyConfigured — повторный Setup поверх существующей записи.
	ErrAlreadyConfigured = errors.New("auth: master password is already configured")
	// ErrWrongPassword — верификатор не открылся производным ключом.
	ErrWrongPassword = errors.New("auth: wrong password")
)

// LockedError — аккаунт временно заблокирован после серии неудачных попыток.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("auth: account locked, try again in %d seconds", int(e.Remaining.Seconds()))
}

// WeakPasswordError перечисляет невыполненные требования к паролю.
type WeakPasswordError struct {
	Requirements []string
}

func (e *WeakPasswordError) Error() string {
	return "auth: weak password: " + strings.Join(e.Requirements, "; ")
}

// credentialRecord — содержимое auth.json. Инвариант: ни пароль,
// ни производный ключ сюда не попадают никогда.
type credentialRecord struct {
	Salt          string    `json:"salt"`
	Verifier      []byte    `json:"verifier"`
	KDF           kdfRecord `json:"kdf"`
	CreatedAt     time.Time `json:"created_at"`
	SchemaVersion int       `json:"schema_version"`
}

type kdfRecord struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
}

// Manager владеет записью учётных данных на диске и политикой блокировки.
// Состояние неудачных попыток живёт в памяти процесса; запись переживает
// рестарты.
type Manager struct {
	dir    string
	params crypto.KDFParams
	log    *zap.SugaredLogger

	maxAttempts int
	lockoutFor  time.Duration

	failed   int
	unlockAt time.Time
	salt     []byte // кэш соли после первого чтения записи

	// now подменяется в тестах; блокировка считается от абсолютной
	// метки разблокировки и потому переживает сон/саспенд процесса.
	now func() time.Time
}

// NewManager создаёт менеджер аутентификации для каталога vault-а.
func NewManager(dir string, params crypto.KDFParams, log *zap.SugaredLogger) *Manager {
	return &Manager{
		dir:         dir,
		params:      params.Normalized(),
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		lockoutFor:  DefaultLockoutDuration,
		now:         time.Now,
	}
}

// SetLockoutPolicy переопределяет политику блокировки (конфигурация).
func (m *Manager) SetLockoutPolicy(maxAttempts int, d time.Duration) {
	if maxAttempts > 0 {
		m.maxAttempts = maxAttempts
	}
	if d > 0 {
		m.lockoutFor = d
	}
}

func (m *Manager) credentialPath() string {
	return filepath.Join(m.dir, credentialFile)
}

// IsFirstRun — true, пока запись учётных данных не создана.
func (m *Manager) IsFirstRun() bool {
	_, err := os.Stat(m.credentialPath())
	return err != nil
}

// Setup устанавливает мастер-пароль при первом запуске: проверяет стойкость,
// генерирует соль, сохраняет запись (0600) и возвращает производный ключ,
// чтобы первый запуск сразу переходил в сессию.
func (m *Manager) Setup(password string) ([]byte, error) {
	if !m.IsFirstRun() {
		return nil, ErrAlreadyConfigured
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}
	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	key, err := crypto.DeriveKey(password, salt, m.params)
	if err != nil {
		return nil, err
	}
	verifier, err := crypto.Seal(key, salt, []byte(verifierPlaintext))
	if err != nil {
		crypto.Zeroize(key)
		return nil, err
	}
	rec := credentialRecord{
		Salt:          hex.EncodeToString(salt),
		Verifier:      verifier,
		KDF:           kdfRecord{Time: m.params.Time, MemoryKiB: m.params.MemoryKiB, Threads: m.params.Threads},
		CreatedAt:     m.now(),
		SchemaVersion: schemaVersion,
	}
	if err := m.writeRecord(&rec); err != nil {
		crypto.Zeroize(key)
		return nil, err
	}
	m.salt = salt
	m.log.Infow("master password configured", "path", m.credentialPath())
	return key, nil
}

// Verify проверяет пароль и возвращает сессионный ключ.
//
// В состоянии блокировки возвращает LockedError немедленно, без деривации:
// это не тратит CPU, не расходует попытку и не продлевает блокировку.
// Успех сбрасывает счётчик неудач; m.maxAttempts подряд неудачных попыток
// ставят абсолютную метку разблокировки.
func (m *Manager) Verify(password string) ([]byte, error) {
	if remaining := m.lockedFor(); remaining > 0 {
		return nil, &LockedError{Remaining: remaining}
	}
	rec, err := m.readRecord()
	if err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, fmt.Errorf("auth: corrupted credential record: %w", err)
	}
	params := crypto.KDFParams{Time: rec.KDF.Time, MemoryKiB: rec.KDF.MemoryKiB, Threads: rec.KDF.Threads}
	// Деривация всегда выполняется до конца — ранний выход дал бы
	// тайминговый оракул между верным и неверным паролем.
	key, err := crypto.DeriveKey(password, salt, params)
	if err != nil {
		return nil, err
	}
	if _, err := crypto.Open(key, rec.Verifier); err != nil {
		crypto.Zeroize(key)
		m.failed++
		m.log.Warnw("authentication failed", "attempt", m.failed, "max", m.maxAttempts)
		if m.failed >= m.maxAttempts {
			m.unlockAt = m.now().Add(m.lockoutFor)
			m.log.Warnw("account locked", "until", m.unlockAt)
		}
		return nil, ErrWrongPassword
	}
	m.failed = 0
	m.log.Infow("authentication successful")
	return key, nil
}

// Salt возвращает соль vault-а; она переносится в конверты полей.
func (m *Manager) Salt() ([]byte, error) {
	if m.salt != nil {
		return m.salt, nil
	}
	rec, err := m.readRecord()
	if err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, fmt.Errorf("auth: corrupted credential record: %w", err)
	}
	m.salt = salt
	return salt, nil
}

// lockedFor возвращает остаток блокировки; 0 — не заблокирован.
func (m *Manager) lockedFor() time.Duration {
	if m.unlockAt.IsZero() {
		return 0
	}
	remaining := m.unlockAt.Sub(m.now())
	if remaining <= 0 {
		// Блокировка истекла: счётчик начинается заново.
		m.unlockAt = time.Time{}
		m.failed = 0
		return 0
	}
	return remaining
}

func (m *Manager) writeRecord(rec *credentialRecord) error {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return fmt.Errorf("auth: create vault dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encode credential record: %w", err)
	}
	if err := os.WriteFile(m.credentialPath(), data, 0o600); err != nil {
		return fmt.Errorf("auth: write credential record: %w", err)
	}
	return nil
}

func (m *Manager) readRecord() (*credentialRecord, error) {
	data, err := os.ReadFile(m.credentialPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("auth: read credential record: %w", err)
	}
	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("auth: corrupted credential record: %w", err)
	}
	return &rec, nil
}
