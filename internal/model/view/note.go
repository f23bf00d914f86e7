package view

import "time"

// Note — DTO заметки с расшифрованными полями для слоя UI.
type Note struct {
	ID         string
	Title      string // расшифрованный заголовок
	Content    string // расшифрованное содержимое; пустое в списках
	NotebookID *string
	Tags       []string

	Favorite bool
	Pinned   bool
	Archived bool
	Trashed  bool
	Color    string

	WordCount      int
	CharCount      int
	ReadingTime    int
	HasTasks       bool
	CompletedTasks int
	TotalTasks     int

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// DecryptFailure — заметка, чей конверт не удалось расшифровать при
// пакетной операции. Сообщается поштучно: это признак порчи данных
// либо рассинхронизации сессионного ключа, который нельзя глотать.
type DecryptFailure struct {
	NoteID string
	Err    error
}
