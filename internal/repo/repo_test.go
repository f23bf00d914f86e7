package repo

import (
	"errors"
	"strings"
	"testing"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"SecureNotes/internal/crypto"
	"SecureNotes/internal/model"
)

// newTestDB инициализирует in-memory SQLite (modernc.org/sqlite) для тестов репозитория
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	// Миграции для всех моделей, используемых в репозиториях
	if err := db.AutoMigrate(&model.Notebook{}, &model.Note{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return db
}

// фиксированные провайдеры ключа и соли: тестам репозитория не нужна
// дорогая деривация
var errSessionClosed = errors.New("session closed")

type testKeys struct{ key []byte }

func (k *testKeys) Key() ([]byte, error) {
	if k.key == nil {
		return nil, errSessionClosed
	}
	return k.key, nil
}

type testSalt struct{ salt []byte }

func (s *testSalt) Salt() ([]byte, error) { return s.salt, nil }

func newTestCodec(t *testing.T) (*crypto.FieldCodec, *testKeys) {
	t.Helper()
	key := make([]byte, crypto.KeyLen)
	salt := make([]byte, crypto.SaltLen)
	for i := range key {
		key[i] = byte(i + 1)
	}
	for i := range salt {
		salt[i] = byte(i + 101)
	}
	keys := &testKeys{key: key}
	return crypto.NewFieldCodec(keys, &testSalt{salt: salt}), keys
}
