package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"SecureNotes/internal/crypto"
	"SecureNotes/internal/model"
	"SecureNotes/internal/model/view"
)

// ListOptions — фильтры списочных выборок.
type ListOptions struct {
	IncludeTrashed  bool
	IncludeArchived bool
}

// NoteRepository определяет контракт доступа к заметкам для слоя сервиса.
// Все чтения возвращают расшифрованный заголовок; содержимое
// расшифровывается только в Get и Search — осознанный компромисс
// производительности списочных представлений.
type NoteRepository interface {
	Create(ctx context.Context, title, content string, notebookID *string) (*view.Note, error)
	Get(ctx context.Context, id string) (*view.Note, error)
	Update(ctx context.Context, n *view.Note) error
	Delete(ctx context.Context, id string, permanent bool) error
	Restore(ctx context.Context, id string) error

	List(ctx context.Context, opts ListOptions) ([]view.Note, error)
	ListByNotebook(ctx context.Context, notebookID string) ([]view.Note, error)
	Favorites(ctx context.Context) ([]view.Note, error)
	Trashed(ctx context.Context) ([]view.Note, error)

	// Search расшифровывает заголовок и содержимое всех неудалённых заметок
	// и ищет подстроку без учёта регистра. O(n) с полной расшифровкой —
	// приемлемо для локальных vault-ов. Заметки, чей конверт не открылся,
	// не пропускаются молча, а возвращаются вторым значением.
	Search(ctx context.Context, query string) ([]view.Note, []view.DecryptFailure, error)

	ToggleFavorite(ctx context.Context, id string) error
	TogglePin(ctx context.Context, id string) error
	ToggleArchive(ctx context.Context, id string) error

	Count(ctx context.Context) (int64, error)
	EmptyTrash(ctx context.Context) error
}

type noteRepo struct {
	db    *gorm.DB
	codec *crypto.FieldCodec
	now   func() time.Time
}

// NewNoteRepository создаёт gorm-реализацию репозитория заметок.
func NewNoteRepository(db *gorm.DB, codec *crypto.FieldCodec) NoteRepository {
	return &noteRepo{db: db, codec: codec, now: time.Now}
}

func storageErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Create шифрует поля и вставляет заметку одной транзакцией:
// created_at = modified_at = now, метаданные считаются из содержимого.
func (r *noteRepo) Create(ctx context.Context, title, content string, notebookID *string) (*view.Note, error) {
	encTitle, err := r.codec.EncryptField(title)
	if err != nil {
		return nil, err
	}
	encContent, err := r.codec.EncryptField(content)
	if err != nil {
		return nil, err
	}
	now := r.now()
	n := model.Note{
		ID:                model.NewNoteID(),
		Title:             encTitle,
		Content:           encContent,
		NotebookID:        notebookID,
		EncryptionVersion: model.EncryptionVersion,
		CreatedAt:         now,
		ModifiedAt:        now,
	}
	n.ApplyMetadata(model.Analyze(content))
	if err := r.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, storageErr("create note", err)
	}
	v := toView(&n)
	v.Title = title
	v.Content = content
	return v, nil
}

// Get возвращает заметку с расшифрованными заголовком и содержимым.
// Доступна и корзина: выборка по id — явное действие пользователя.
func (r *noteRepo) Get(ctx context.Context, id string) (*view.Note, error) {
	var n model.Note
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, storageErr("get note", err)
	}
	title, err := r.codec.DecryptField(n.Title)
	if err != nil {
		return nil, err
	}
	content, err := r.codec.DecryptField(n.Content)
	if err != nil {
		return nil, err
	}
	v := toView(&n)
	v.Title = title
	v.Content = content
	return v, nil
}

// Update пересчитывает метаданные из переданного открытого содержимого
// (хранимым значениям не доверяем), перешифровывает поля, обновляет
// modified_at и пишет всё одной транзакцией.
func (r *noteRepo) Update(ctx context.Context, v *view.Note) error {
	encTitle, err := r.codec.EncryptField(v.Title)
	if err != nil {
		return err
	}
	encContent, err := r.codec.EncryptField(v.Content)
	if err != nil {
		return err
	}
	md := model.Analyze(v.Content)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n model.Note
		if err := tx.First(&n, "id = ?", v.ID).Error; err != nil {
			return storageErr("update note", err)
		}
		n.Title = encTitle
		n.Content = encContent
		n.NotebookID = v.NotebookID
		n.SetTags(v.Tags)
		n.Favorite = v.Favorite
		n.Pinned = v.Pinned
		n.Archived = v.Archived
		n.Trashed = v.Trashed
		n.Color = v.Color
		n.ApplyMetadata(md)
		n.ModifiedAt = r.now()
		if err := tx.Save(&n).Error; err != nil {
			return storageErr("update note", err)
		}
		return nil
	})
}

// Delete: permanent=false помечает заметку как удалённую (обратимо,
// идемпотентно, modified_at обновляется); permanent=true убирает строку
// безвозвратно.
func (r *noteRepo) Delete(ctx context.Context, id string, permanent bool) error {
	if permanent {
		res := r.db.WithContext(ctx).Delete(&model.Note{}, "id = ?", id)
		if res.Error != nil {
			return storageErr("delete note", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete note: %w", ErrNotFound)
		}
		return nil
	}
	return r.setTrashed(ctx, id, true)
}

// Restore возвращает заметку из корзины.
func (r *noteRepo) Restore(ctx context.Context, id string) error {
	return r.setTrashed(ctx, id, false)
}

func (r *noteRepo) setTrashed(ctx context.Context, id string, trashed bool) error {
	res := r.db.WithContext(ctx).Model(&model.Note{}).
		Where("id = ?", id).
		Updates(map[string]any{"trashed": trashed, "modified_at": r.now()})
	if res.Error != nil {
		return storageErr("trash note", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trash note: %w", ErrNotFound)
	}
	return nil
}

// List возвращает заметки с расшифрованными заголовками; содержимое
// в списках не расшифровывается. Сортировка: закреплённые сверху,
// затем по modified_at по убыванию.
func (r *noteRepo) List(ctx context.Context, opts ListOptions) ([]view.Note, error) {
	q := r.db.WithContext(ctx).Model(&model.Note{})
	if !opts.IncludeTrashed {
		q = q.Where("trashed = ?", false)
	}
	if !opts.IncludeArchived {
		q = q.Where("archived = ?", false)
	}
	return r.listTitles(q.Order("pinned DESC").Order("modified_at DESC"))
}

// ListByNotebook возвращает неудалённые заметки одного блокнота.
func (r *noteRepo) ListByNotebook(ctx context.Context, notebookID string) ([]view.Note, error) {
	q := r.db.WithContext(ctx).Model(&model.Note{}).
		Where("notebook_id = ? AND trashed = ?", notebookID, false).
		Order("pinned DESC").Order("modified_at DESC")
	return r.listTitles(q)
}

// Favorites возвращает избранные неудалённые заметки.
func (r *noteRepo) Favorites(ctx context.Context) ([]view.Note, error) {
	q := r.db.WithContext(ctx).Model(&model.Note{}).
		Where("favorite = ? AND trashed = ?", true, false).
		Order("modified_at DESC")
	return r.listTitles(q)
}

// Trashed возвращает содержимое корзины.
func (r *noteRepo) Trashed(ctx context.Context) ([]view.Note, error) {
	q := r.db.WithContext(ctx).Model(&model.Note{}).
		Where("trashed = ?", true).
		Order("modified_at DESC")
	return r.listTitles(q)
}

func (r *noteRepo) listTitles(q *gorm.DB) ([]view.Note, error) {
	var rows []model.Note
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageErr("list notes", err)
	}
	res := make([]view.Note, 0, len(rows))
	for i := range rows {
		title, err := r.codec.DecryptField(rows[i].Title)
		if err != nil {
			return nil, err
		}
		v := toView(&rows[i])
		v.Title = title
		res = append(res, *v)
	}
	return res, nil
}

func (r *noteRepo) Search(ctx context.Context, query string) ([]view.Note, []view.DecryptFailure, error) {
	var rows []model.Note
	if err := r.db.WithContext(ctx).
		Where("trashed = ?", false).
		Order("pinned DESC").Order("modified_at DESC").
		Find(&rows).Error; err != nil {
		return nil, nil, storageErr("search notes", err)
	}
	needle := strings.ToLower(query)
	var (
		matches  []view.Note
		failures []view.DecryptFailure
	)
	for i := range rows {
		title, err := r.codec.DecryptField(rows[i].Title)
		if err != nil {
			failures = append(failures, view.DecryptFailure{NoteID: rows[i].ID, Err: err})
			continue
		}
		content, err := r.codec.DecryptField(rows[i].Content)
		if err != nil {
			failures = append(failures, view.DecryptFailure{NoteID: rows[i].ID, Err: err})
			continue
		}
		if strings.Contains(strings.ToLower(title), needle) ||
			strings.Contains(strings.ToLower(content), needle) {
			v := toView(&rows[i])
			v.Title = title
			v.Content = content
			matches = append(matches, *v)
		}
	}
	return matches, failures, nil
}

func (r *noteRepo) ToggleFavorite(ctx context.Context, id string) error {
	return r.toggleFlag(ctx, id, "favorite")
}

func (r *noteRepo) TogglePin(ctx context.Context, id string) error {
	return r.toggleFlag(ctx, id, "pinned")
}

func (r *noteRepo) ToggleArchive(ctx context.Context, id string) error {
	return r.toggleFlag(ctx, id, "archived")
}

func (r *noteRepo) toggleFlag(ctx context.Context, id, column string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n model.Note
		if err := tx.First(&n, "id = ?", id).Error; err != nil {
			return storageErr("toggle "+column, err)
		}
		var val bool
		switch column {
		case "favorite":
			val = !n.Favorite
		case "pinned":
			val = !n.Pinned
		case "archived":
			val = !n.Archived
		}
		if err := tx.Model(&n).
			Updates(map[string]any{column: val, "modified_at": r.now()}).Error; err != nil {
			return storageErr("toggle "+column, err)
		}
		return nil
	})
}

// Count — число заметок вне корзины.
func (r *noteRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Note{}).
		Where("trashed = ?", false).Count(&count).Error; err != nil {
		return 0, storageErr("count notes", err)
	}
	return count, nil
}

// EmptyTrash безвозвратно удаляет все заметки из корзины.
func (r *noteRepo) EmptyTrash(ctx context.Context) error {
	if err := r.db.WithContext(ctx).
		Where("trashed = ?", true).
		Delete(&model.Note{}).Error; err != nil {
		return storageErr("empty trash", err)
	}
	return nil
}

func toView(n *model.Note) *view.Note {
	return &view.Note{
		ID:             n.ID,
		NotebookID:     n.NotebookID,
		Tags:           n.TagList(),
		Favorite:       n.Favorite,
		Pinned:         n.Pinned,
		Archived:       n.Archived,
		Trashed:        n.Trashed,
		Color:          n.Color,
		WordCount:      n.WordCount,
		CharCount:      n.CharCount,
		ReadingTime:    n.ReadingTime,
		HasTasks:       n.HasTasks,
		CompletedTasks: n.CompletedTasks,
		TotalTasks:     n.TotalTasks,
		CreatedAt:      n.CreatedAt,
		ModifiedAt:     n.ModifiedAt,
	}
}
