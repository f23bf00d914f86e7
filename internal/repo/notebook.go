package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"SecureNotes/internal/model"
)

// DefaultNotebookName — имя блокнота, создаваемого при первом запуске.
const DefaultNotebookName = "My Notes"

// ErrDefaultNotebook — попытка удалить блокнот по умолчанию.
var ErrDefaultNotebook = errors.New("repo: default notebook cannot be deleted")

// NotebookRepository — контракт доступа к блокнотам.
// Имена блокнотов не шифруются: это организационные метаданные,
// чувствительные поля живут в заметках.
type NotebookRepository interface {
	Create(ctx context.Context, name string, parentID *string) (*model.Notebook, error)
	Get(ctx context.Context, id string) (*model.Notebook, error)
	List(ctx context.Context) ([]model.Notebook, error)
	Update(ctx context.Context, nb *model.Notebook) error

	// SetDefault назначает новый блокнот по умолчанию, атомарно снимая
	// флаг с прежнего: в любой момент ровно один блокнот имеет
	// is_default = true.
	SetDefault(ctx context.Context, id string) error

	// EnsureDefault гарантирует существование блокнота по умолчанию,
	// создавая его при первом запуске.
	EnsureDefault(ctx context.Context) (*model.Notebook, error)

	// Delete удаляет блокнот. Блокнот по умолчанию не удаляется.
	// reassignTo != nil переносит его заметки в указанный блокнот,
	// иначе они отправляются в корзину. Всё в одной транзакции.
	Delete(ctx context.Context, id string, reassignTo *string) error

	Count(ctx context.Context) (int64, error)
}

type notebookRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNotebookRepository создаёт gorm-реализацию репозитория блокнотов.
func NewNotebookRepository(db *gorm.DB) NotebookRepository {
	return &notebookRepo{db: db, now: time.Now}
}

func (r *notebookRepo) Create(ctx context.Context, name string, parentID *string) (*model.Notebook, error) {
	if name == "" {
		name = "New Notebook"
	}
	now := r.now()
	nb := model.Notebook{
		ID:         model.NewNotebookID(),
		Name:       name,
		ParentID:   parentID,
		Icon:       "notebook",
		Color:      "#4A9EFF",
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&nb).Error; err != nil {
		return nil, storageErr("create notebook", err)
	}
	return &nb, nil
}

func (r *notebookRepo) Get(ctx context.Context, id string) (*model.Notebook, error) {
	var nb model.Notebook
	if err := r.db.WithContext(ctx).First(&nb, "id = ?", id).Error; err != nil {
		return nil, storageErr("get notebook", err)
	}
	return &nb, nil
}

// List возвращает блокноты в порядке sort_order, затем по имени.
func (r *notebookRepo) List(ctx context.Context) ([]model.Notebook, error) {
	var nbs []model.Notebook
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC").Order("name ASC").
		Find(&nbs).Error; err != nil {
		return nil, storageErr("list notebooks", err)
	}
	return nbs, nil
}

func (r *notebookRepo) Update(ctx context.Context, nb *model.Notebook) error {
	nb.ModifiedAt = r.now()
	res := r.db.WithContext(ctx).Model(&model.Notebook{}).
		Where("id = ?", nb.ID).
		Updates(map[string]any{
			"name":        nb.Name,
			"parent_id":   nb.ParentID,
			"color":       nb.Color,
			"icon":        nb.Icon,
			"description": nb.Description,
			"sort_order":  nb.SortOrder,
			"modified_at": nb.ModifiedAt,
		})
	if res.Error != nil {
		return storageErr("update notebook", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update notebook: %w", ErrNotFound)
	}
	return nil
}

func (r *notebookRepo) SetDefault(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nb model.Notebook
		if err := tx.First(&nb, "id = ?", id).Error; err != nil {
			return storageErr("set default notebook", err)
		}
		// Снять прежний флаг и выставить новый в одной транзакции.
		if err := tx.Model(&model.Notebook{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return storageErr("set default notebook", err)
		}
		if err := tx.Model(&nb).Update("is_default", true).Error; err != nil {
			return storageErr("set default notebook", err)
		}
		return nil
	})
}

func (r *notebookRepo) EnsureDefault(ctx context.Context) (*model.Notebook, error) {
	var nb model.Notebook
	err := r.db.WithContext(ctx).First(&nb, "is_default = ?", true).Error
	if err == nil {
		return &nb, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("ensure default notebook", err)
	}
	now := r.now()
	nb = model.Notebook{
		ID:         model.NewNotebookID(),
		Name:       DefaultNotebookName,
		Icon:       "notebook",
		Color:      "#4A9EFF",
		IsDefault:  true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&nb).Error; err != nil {
		return nil, storageErr("ensure default notebook", err)
	}
	return &nb, nil
}

func (r *notebookRepo) Delete(ctx context.Context, id string, reassignTo *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nb model.Notebook
		if err := tx.First(&nb, "id = ?", id).Error; err != nil {
			return storageErr("delete notebook", err)
		}
		if nb.IsDefault {
			return ErrDefaultNotebook
		}
		now := r.now()
		if reassignTo != nil {
			// Цель переноса должна существовать.
			var target model.Notebook
			if err := tx.First(&target, "id = ?", *reassignTo).Error; err != nil {
				return storageErr("delete notebook", err)
			}
			if err := tx.Model(&model.Note{}).
				Where("notebook_id = ?", id).
				Updates(map[string]any{"notebook_id": target.ID, "modified_at": now}).Error; err != nil {
				return storageErr("delete notebook", err)
			}
		} else {
			if err := tx.Model(&model.Note{}).
				Where("notebook_id = ?", id).
				Updates(map[string]any{"trashed": true, "notebook_id": nil, "modified_at": now}).Error; err != nil {
				return storageErr("delete notebook", err)
			}
		}
		// Дочерние блокноты поднимаются на уровень удаляемого.
		if err := tx.Model(&model.Notebook{}).
			Where("parent_id = ?", id).
			Updates(map[string]any{"parent_id": nb.ParentID, "modified_at": now}).Error; err != nil {
			return storageErr("delete notebook", err)
		}
		if err := tx.Delete(&nb).Error; err != nil {
			return storageErr("delete notebook", err)
		}
		return nil
	})
}

func (r *notebookRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Notebook{}).Count(&count).Error; err != nil {
		return 0, storageErr("count notebooks", err)
	}
	return count, nil
}
