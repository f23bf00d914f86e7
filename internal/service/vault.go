package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SecureNotes/internal/auth"
	"SecureNotes/internal/crypto"
	"SecureNotes/internal/model"
	"SecureNotes/internal/model/view"
	"SecureNotes/internal/repo"
)

// Vault — фасад ядра для внешней оболочки (GUI).
// Оболочка не трогает ни ключи, ни конверты: только
// authenticate/lock и CRUD поверх расшифрованных DTO.
type Vault struct {
	manager   *auth.Manager
	session   *auth.Session
	notes     repo.NoteRepository
	notebooks repo.NotebookRepository
	log       *zap.SugaredLogger
}

// Stats — сводка по хранилищу для панели состояния.
type Stats struct {
	Notes     int64
	Notebooks int64
	Favorites int64
	Trashed   int64
}

// NewVault собирает ядро: менеджер аутентификации, сессию, кодек полей
// и репозитории поверх одного подключения к БД.
func NewVault(db *gorm.DB, manager *auth.Manager, log *zap.SugaredLogger) *Vault {
	session := auth.NewSession()
	codec := crypto.NewFieldCodec(session, manager)
	return &Vault{
		manager:   manager,
		session:   session,
		notes:     repo.NewNoteRepository(db, codec),
		notebooks: repo.NewNotebookRepository(db),
		log:       log,
	}
}

// FirstRun — true, пока мастер-пароль не установлен.
func (v *Vault) FirstRun() bool { return v.manager.IsFirstRun() }

// SetupPassword устанавливает мастер-пароль и сразу открывает сессию.
func (v *Vault) SetupPassword(ctx context.Context, password string) error {
	key, err := v.manager.Setup(password)
	if err != nil {
		return err
	}
	v.session.Cache(key)
	crypto.Zeroize(key)
	if _, err := v.notebooks.EnsureDefault(ctx); err != nil {
		return err
	}
	v.log.Infow("vault initialized and unlocked")
	return nil
}

// Authenticate проверяет пароль и кэширует сессионный ключ.
// Деривация дорогая (намеренно); вызывающий поток блокируется до конца —
// частичных результатов нет, досрочная отмена не поддерживается.
func (v *Vault) Authenticate(ctx context.Context, password string) error {
	key, err := v.manager.Verify(password)
	if err != nil {
		return err
	}
	v.session.Cache(key)
	crypto.Zeroize(key)
	if _, err := v.notebooks.EnsureDefault(ctx); err != nil {
		return err
	}
	v.log.Infow("vault unlocked")
	return nil
}

// Lock затирает сессионный ключ. Обязателен на logout и выходе из процесса;
// авто-блокировка по бездействию — забота оболочки, которая зовёт Lock.
func (v *Vault) Lock() {
	v.session.Clear()
	v.log.Infow("vault locked")
}

// Unlocked сообщает, активна ли сессия.
func (v *Vault) Unlocked() bool { return v.session.Active() }

// --- Notes ---

func (v *Vault) CreateNote(ctx context.Context, title, content string, notebookID *string) (*view.Note, error) {
	n, err := v.notes.Create(ctx, title, content, notebookID)
	if err != nil {
		return nil, err
	}
	v.log.Infow("note created", "id", n.ID)
	return n, nil
}

func (v *Vault) GetNote(ctx context.Context, id string) (*view.Note, error) {
	return v.notes.Get(ctx, id)
}

func (v *Vault) UpdateNote(ctx context.Context, n *view.Note) error {
	if err := v.notes.Update(ctx, n); err != nil {
		return err
	}
	v.log.Infow("note updated", "id", n.ID)
	return nil
}

func (v *Vault) DeleteNote(ctx context.Context, id string, permanent bool) error {
	if err := v.notes.Delete(ctx, id, permanent); err != nil {
		return err
	}
	v.log.Infow("note deleted", "id", id, "permanent", permanent)
	return nil
}

func (v *Vault) RestoreNote(ctx context.Context, id string) error {
	if err := v.notes.Restore(ctx, id); err != nil {
		return err
	}
	v.log.Infow("note restored", "id", id)
	return nil
}

func (v *Vault) ListNotes(ctx context.Context, opts repo.ListOptions) ([]view.Note, error) {
	return v.notes.List(ctx, opts)
}

func (v *Vault) NotebookNotes(ctx context.Context, notebookID string) ([]view.Note, error) {
	return v.notes.ListByNotebook(ctx, notebookID)
}

func (v *Vault) FavoriteNotes(ctx context.Context) ([]view.Note, error) {
	return v.notes.Favorites(ctx)
}

func (v *Vault) TrashedNotes(ctx context.Context) ([]view.Note, error) {
	return v.notes.Trashed(ctx)
}

// SearchNotes ищет подстроку по заголовкам и содержимому.
// Поштучные сбои расшифровки отдаются оболочке вторым значением:
// они сигнализируют порчу данных, и пользователь должен их увидеть.
func (v *Vault) SearchNotes(ctx context.Context, query string) ([]view.Note, []view.DecryptFailure, error) {
	notes, failures, err := v.notes.Search(ctx, query)
	if len(failures) > 0 {
		v.log.Warnw("search: some notes failed to decrypt", "count", len(failures))
	}
	return notes, failures, err
}

func (v *Vault) ToggleFavorite(ctx context.Context, id string) error {
	return v.notes.ToggleFavorite(ctx, id)
}

func (v *Vault) TogglePin(ctx context.Context, id string) error {
	return v.notes.TogglePin(ctx, id)
}

func (v *Vault) ToggleArchive(ctx context.Context, id string) error {
	return v.notes.ToggleArchive(ctx, id)
}

func (v *Vault) EmptyTrash(ctx context.Context) error {
	if err := v.notes.EmptyTrash(ctx); err != nil {
		return err
	}
	v.log.Infow("trash emptied")
	return nil
}

// --- Notebooks ---

func (v *Vault) CreateNotebook(ctx context.Context, name string, parentID *string) (*model.Notebook, error) {
	nb, err := v.notebooks.Create(ctx, name, parentID)
	if err != nil {
		return nil, err
	}
	v.log.Infow("notebook created", "id", nb.ID, "name", nb.Name)
	return nb, nil
}

func (v *Vault) GetNotebook(ctx context.Context, id string) (*model.Notebook, error) {
	return v.notebooks.Get(ctx, id)
}

func (v *Vault) ListNotebooks(ctx context.Context) ([]model.Notebook, error) {
	return v.notebooks.List(ctx)
}

func (v *Vault) UpdateNotebook(ctx context.Context, nb *model.Notebook) error {
	return v.notebooks.Update(ctx, nb)
}

func (v *Vault) SetDefaultNotebook(ctx context.Context, id string) error {
	return v.notebooks.SetDefault(ctx, id)
}

// DeleteNotebook удаляет блокнот; reassignTo != nil переносит его заметки,
// nil — отправляет их в корзину. Блокнот по умолчанию не удаляется.
func (v *Vault) DeleteNotebook(ctx context.Context, id string, reassignTo *string) error {
	if err := v.notebooks.Delete(ctx, id, reassignTo); err != nil {
		return err
	}
	v.log.Infow("notebook deleted", "id", id)
	return nil
}

// VaultStats — счётчики заметок и блокнотов.
func (v *Vault) VaultStats(ctx context.Context) (*Stats, error) {
	notes, err := v.notes.Count(ctx)
	if err != nil {
		return nil, err
	}
	notebooks, err := v.notebooks.Count(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := v.notes.Favorites(ctx)
	if err != nil {
		return nil, err
	}
	trashed, err := v.notes.Trashed(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Notes:     notes,
		Notebooks: notebooks,
		Favorites: int64(len(favorites)),
		Trashed:   int64(len(trashed)),
	}, nil
}
