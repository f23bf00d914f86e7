package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EncryptionVersion — версия схемы шифрования полей заметки.
const EncryptionVersion = "1.0"

// Note — заметка. Поля Title и Content хранятся как конверты
// (соль‖nonce‖шифртекст+тег); открытый текст есть только в памяти
// после расшифровки кодеком.
type Note struct {
	ID string `gorm:"primaryKey;type:uuid"`

	Title   []byte `gorm:"not null"` // зашифрованный заголовок
	Content []byte `gorm:"not null"` // зашифрованное содержимое

	NotebookID *string   `gorm:"type:uuid;index"`
	Notebook   *Notebook `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`

	// Теги храним склеенными через запятую, как и исходная схема.
	Tags string

	Favorite bool `gorm:"not null;default:false;index"`
	Pinned   bool `gorm:"not null;default:false"`
	Archived bool `gorm:"not null;default:false"`
	Trashed  bool `gorm:"not null;default:false;index"`

	Color string

	// Производные метаданные: всегда пересчитываются из открытого текста
	// перед повторным шифрованием, из хранилища им доверять нельзя.
	WordCount      int `gorm:"not null;default:0"`
	CharCount      int `gorm:"not null;default:0"`
	ReadingTime    int `gorm:"not null;default:0"`
	HasTasks       bool
	CompletedTasks int `gorm:"not null;default:0"`
	TotalTasks     int `gorm:"not null;default:0"`

	EncryptionVersion string `gorm:"not null;default:'1.0'"`

	CreatedAt  time.Time `gorm:"not null"`
	ModifiedAt time.Time `gorm:"not null;index"`
}

// NewNoteID возвращает свежий уникальный идентификатор заметки.
func NewNoteID() string { return uuid.NewString() }

// TagList разбирает склеенные теги в срез.
func (n *Note) TagList() []string {
	if n.Tags == "" {
		return nil
	}
	return strings.Split(n.Tags, ",")
}

// SetTags склеивает теги для хранения.
func (n *Note) SetTags(tags []string) {
	n.Tags = strings.Join(tags, ",")
}

// taskRe распознаёт маркеры задач в Markdown-содержимом.
var taskRe = regexp.MustCompile(`\[ \]|\[x\]|\[X\]`)

// Metadata — производные метаданные содержимого заметки.
type Metadata struct {
	WordCount      int
	CharCount      int
	ReadingTime    int
	HasTasks       bool
	CompletedTasks int
	TotalTasks     int
}

// Analyze пересчитывает метаданные по открытому тексту содержимого.
func Analyze(content string) Metadata {
	md := Metadata{
		WordCount: len(strings.Fields(content)),
		CharCount: len([]rune(content)),
	}
	if md.WordCount > 0 {
		// Средняя скорость чтения ~200 слов в минуту.
		md.ReadingTime = md.WordCount / 200
		if md.ReadingTime < 1 {
			md.ReadingTime = 1
		}
	}
	tasks := taskRe.FindAllString(content, -1)
	md.TotalTasks = len(tasks)
	for _, t := range tasks {
		if strings.EqualFold(t, "[x]") {
			md.CompletedTasks++
		}
	}
	md.HasTasks = md.TotalTasks > 0
	return md
}

// ApplyMetadata записывает пересчитанные метаданные в заметку.
func (n *Note) ApplyMetadata(md Metadata) {
	n.WordCount = md.WordCount
	n.CharCount = md.CharCount
	n.ReadingTime = md.ReadingTime
	n.HasTasks = md.HasTasks
	n.CompletedTasks = md.CompletedTasks
	n.TotalTasks = md.TotalTasks
}
