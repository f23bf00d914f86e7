package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SecureNotes/internal/crypto"
	"SecureNotes/internal/model"
)

func TestNoteRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	n, err := r.Create(ctx, "Shopping", "- [ ] milk\n- [x] eggs", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, n.CreatedAt, n.ModifiedAt)

	got, err := r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, "- [ ] milk\n- [x] eggs", got.Content)

	// производные метаданные посчитаны из открытого текста
	assert.True(t, got.HasTasks)
	assert.Equal(t, 2, got.TotalTasks)
	assert.Equal(t, 1, got.CompletedTasks)
	assert.Equal(t, 7, got.WordCount)

	// в хранилище — только конверты, открытого текста нет
	var raw model.Note
	require.NoError(t, db.First(&raw, "id = ?", n.ID).Error)
	assert.NotContains(t, string(raw.Title), "Shopping")
	assert.NotContains(t, string(raw.Content), "milk")
}

func TestNoteRepository_EmptyFieldsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	// заметка создаётся с пустым содержимым — сентинел обязан быть обратимым
	n, err := r.Create(ctx, "", "", nil)
	require.NoError(t, err)

	got, err := r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, "", got.Content)
	assert.False(t, got.HasTasks)
	assert.Equal(t, 0, got.WordCount)
}

func TestNoteRepository_Update(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec).(*noteRepo)
	ctx := context.Background()

	n, err := r.Create(ctx, "Draft", "old text", nil)
	require.NoError(t, err)

	// сдвигаем часы, чтобы modified_at гарантированно вырос
	later := n.ModifiedAt.Add(2 * time.Second)
	r.now = func() time.Time { return later }

	n.Title = "Final"
	n.Content = "- [x] done\n- [x] also done"
	n.Tags = []string{"work", "todo"}
	n.Favorite = true
	require.NoError(t, r.Update(ctx, n))

	got, err := r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, "- [x] done\n- [x] also done", got.Content)
	assert.Equal(t, []string{"work", "todo"}, got.Tags)
	assert.True(t, got.Favorite)
	// метаданные пересчитаны, а не взяты из хранилища
	assert.Equal(t, 2, got.TotalTasks)
	assert.Equal(t, 2, got.CompletedTasks)
	assert.True(t, got.ModifiedAt.After(got.CreatedAt))
}

func TestNoteRepository_SoftDeleteIdempotentAndRestore(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec).(*noteRepo)
	ctx := context.Background()

	n, err := r.Create(ctx, "Trash me", "content", nil)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, n.ID, false))
	got, err := r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Trashed)
	firstDelete := got.ModifiedAt

	// повторное мягкое удаление — не ошибка, modified_at обновляется
	later := firstDelete.Add(2 * time.Second)
	r.now = func() time.Time { return later }
	require.NoError(t, r.Delete(ctx, n.ID, false))
	got, err = r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Trashed)
	assert.True(t, got.ModifiedAt.After(firstDelete))

	require.NoError(t, r.Restore(ctx, n.ID))
	got, err = r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.Trashed)
}

func TestNoteRepository_PermanentDelete(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	n, err := r.Create(ctx, "Gone", "forever", nil)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, n.ID, true))
	_, err = r.Get(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// удаление несуществующей — ErrNotFound
	err = r.Delete(ctx, "no-such-id", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoteRepository_ListDecryptsTitlesOnly(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	_, err := r.Create(ctx, "First", "secret body", nil)
	require.NoError(t, err)
	pinned, err := r.Create(ctx, "Pinned", "secret body", nil)
	require.NoError(t, err)
	require.NoError(t, r.TogglePin(ctx, pinned.ID))

	trashed, err := r.Create(ctx, "In trash", "secret body", nil)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, trashed.ID, false))

	notes, err := r.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	// закреплённые сверху
	assert.Equal(t, "Pinned", notes[0].Title)
	// содержимое в списках не расшифровывается — осознанный компромисс
	for _, n := range notes {
		assert.Empty(t, n.Content)
	}

	// корзина — только по явному запросу
	notes, err = r.List(ctx, ListOptions{IncludeTrashed: true})
	require.NoError(t, err)
	assert.Len(t, notes, 3)

	inTrash, err := r.Trashed(ctx)
	require.NoError(t, err)
	require.Len(t, inTrash, 1)
	assert.Equal(t, "In trash", inTrash[0].Title)
}

func TestNoteRepository_ListByNotebookAndFavorites(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	nbr := NewNotebookRepository(db)
	ctx := context.Background()

	nb, err := nbr.Create(ctx, "Work", nil)
	require.NoError(t, err)

	inNb, err := r.Create(ctx, "In notebook", "x", &nb.ID)
	require.NoError(t, err)
	fav, err := r.Create(ctx, "Favorite", "x", nil)
	require.NoError(t, err)
	require.NoError(t, r.ToggleFavorite(ctx, fav.ID))

	notes, err := r.ListByNotebook(ctx, nb.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, inNb.ID, notes[0].ID)

	favs, err := r.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, fav.ID, favs[0].ID)
}

func TestNoteRepository_Search(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	_, err := r.Create(ctx, "Shopping list", "- [ ] milk", nil)
	require.NoError(t, err)
	byContent, err := r.Create(ctx, "Untitled", "buy MILK tomorrow", nil)
	require.NoError(t, err)
	trashed, err := r.Create(ctx, "milk archive", "old", nil)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, trashed.ID, false))

	// без учёта регистра, по заголовку и содержимому, корзина исключена
	notes, failures, err := r.Search(ctx, "milk")
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.NotEqual(t, trashed.ID, n.ID)
	}
	// найденная по содержимому заметка приходит с расшифрованным содержимым
	for _, n := range notes {
		if n.ID == byContent.ID {
			assert.Equal(t, "buy MILK tomorrow", n.Content)
		}
	}
}

func TestNoteRepository_SearchReportsDecryptFailures(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	ok, err := r.Create(ctx, "Readable", "milk", nil)
	require.NoError(t, err)
	broken, err := r.Create(ctx, "Broken", "milk", nil)
	require.NoError(t, err)

	// портим конверт содержимого напрямую в хранилище
	var raw model.Note
	require.NoError(t, db.First(&raw, "id = ?", broken.ID).Error)
	raw.Content[len(raw.Content)-1] ^= 0xFF
	require.NoError(t, db.Model(&model.Note{}).Where("id = ?", broken.ID).
		Update("content", raw.Content).Error)

	notes, failures, err := r.Search(ctx, "milk")
	require.NoError(t, err)
	// сбой одной заметки не роняет поиск и не замалчивается
	require.Len(t, notes, 1)
	assert.Equal(t, ok.ID, notes[0].ID)
	require.Len(t, failures, 1)
	assert.Equal(t, broken.ID, failures[0].NoteID)
	assert.ErrorIs(t, failures[0].Err, crypto.ErrAuthenticationFailed)
}

func TestNoteRepository_RequiresSession(t *testing.T) {
	db := newTestDB(t)
	codec, keys := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	n, err := r.Create(ctx, "Before lock", "x", nil)
	require.NoError(t, err)

	keys.key = nil // сессия закрыта
	_, err = r.Create(ctx, "After lock", "x", nil)
	assert.ErrorIs(t, err, errSessionClosed)
	_, err = r.Get(ctx, n.ID)
	assert.ErrorIs(t, err, errSessionClosed)
}

func TestNoteRepository_CountAndEmptyTrash(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	keep, err := r.Create(ctx, "Keep", "x", nil)
	require.NoError(t, err)
	gone, err := r.Create(ctx, "Gone", "x", nil)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, gone.ID, false))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, r.EmptyTrash(ctx))
	_, err = r.Get(ctx, gone.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestNoteRepository_Toggles(t *testing.T) {
	db := newTestDB(t)
	codec, _ := newTestCodec(t)
	r := NewNoteRepository(db, codec)
	ctx := context.Background()

	n, err := r.Create(ctx, "Flags", "x", nil)
	require.NoError(t, err)

	require.NoError(t, r.ToggleFavorite(ctx, n.ID))
	require.NoError(t, r.TogglePin(ctx, n.ID))
	require.NoError(t, r.ToggleArchive(ctx, n.ID))
	got, err := r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite)
	assert.True(t, got.Pinned)
	assert.True(t, got.Archived)

	require.NoError(t, r.ToggleFavorite(ctx, n.ID))
	got, err = r.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.Favorite)

	// архивные исключаются из списка по запросу
	notes, err := r.List(ctx, ListOptions{IncludeArchived: false})
	require.NoError(t, err)
	assert.Empty(t, notes)
}
