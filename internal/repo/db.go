package repo

import (
	"errors"
	"strings"

	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"SecureNotes/internal/model"
)

var (
	// ErrNotFound — запись с указанным id отсутствует.
	ErrNotFound = errors.New("repo: record not found")
	// ErrStorage — сбой нижележащего хранилища; операция прервана,
	// частичных записей нет (всё выполняется в транзакциях).
	ErrStorage = errors.New("repo: storage error")
)

// Open открывает хранилище по DSN и прогоняет миграции.
// postgres:// выбирает драйвер Postgres, любой другой DSN трактуется как
// путь к файлу SQLite (чистый Go-драйвер modernc, без cgo).
func Open(dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dial = gormpostgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Notebook{}, &model.Note{}); err != nil {
		return nil, err
	}
	return db, nil
}
