package crud

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/auth"
	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/models"
	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/internal/storage"
	"github.com/mmynk/backstack/internal/storage/sqlite"
	"github.com/mmynk/backstack/pkg/logging"
)

const origin = "203.0.113.7"

type fixture struct {
	engine *Engine
	store  *sqlite.SQLiteStore
	owner  *auth.Principal
	other  *auth.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "crud.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry, err := models.NewRegistry()
	require.NoError(t, err)

	ctx := context.Background()
	owner := models.NewUser("owner@example.com", "Owner", "hash")
	require.NoError(t, store.CreateUser(ctx, owner))
	other := models.NewUser("other@example.com", "Other", "hash")
	require.NoError(t, store.CreateUser(ctx, other))

	return &fixture{
		engine: NewEngine(store, registry, logging.Discard(), nil),
		store:  store,
		owner:  &auth.Principal{ID: owner.ID, Email: owner.GetEmail()},
		other:  &auth.Principal{ID: other.ID, Email: other.GetEmail()},
	}
}

func notesResource() *Resource {
	return &Resource{
		Descriptor: models.Notes,
		Filter: filter.Config{
			PathFields: map[string][]string{"id": {"id"}},
			QueryParams: map[string]filter.Field{
				"pinned":   {Column: "pinned", Kind: filter.KindBool},
				"priority": {Column: "priority", Kind: filter.KindInt},
			},
		},
		FilterByOwner:      true,
		SaveCreator:        true,
		RelatedToPersist:   []string{"folder", "tag"},
		RelatedToUpdate:    []string{"folder"},
		IgnoreUniqueErrors: []string{"tags.label"},
	}
}

func tagsResource() *Resource {
	return &Resource{
		Descriptor: models.Tags,
		Filter:     filter.Config{PathFields: map[string][]string{"id": {"id"}}},
	}
}

func (f *fixture) request(p *auth.Principal, path map[string]string) *Request {
	return &Request{Principal: p, Origin: origin, Path: path, Query: url.Values{}}
}

func byID(id int64) map[string]string {
	return map[string]string{"id": strconv.FormatInt(id, 10)}
}

func requireAppErr(t *testing.T, err error) *apperr.Error {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	return appErr
}

func (f *fixture) count(t *testing.T, d *resource.Descriptor) int {
	t.Helper()
	tx, err := f.store.BeginTx(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	n, err := tx.Count(context.Background(), d, nil)
	require.NoError(t, err)
	return n
}

func (f *fixture) createNote(t *testing.T, payload map[string]any) *models.Note {
	t.Helper()
	m, err := f.engine.Create(context.Background(), notesResource(), f.request(f.owner, nil), payload)
	require.NoError(t, err)
	return m.(*models.Note)
}

func TestCreate_CascadesRelated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := f.createNote(t, map[string]any{
		"title":  "Hello",
		"slug":   "hello",
		"folder": map[string]any{"name": "Inbox"},
		"tag":    map[string]any{"label": "work"},
	})

	require.NotZero(t, note.ID)
	require.NotNil(t, note.Folder)
	require.NotNil(t, note.Tag)
	assert.Equal(t, note.Folder.ID, *note.FolderID)
	assert.Equal(t, note.Tag.ID, *note.TagID)
	assert.Equal(t, origin, note.CreatedFrom)
	assert.Equal(t, f.owner.ID, *note.CreatedBy)
	assert.Equal(t, f.owner.ID, *note.Folder.CreatedBy)
	assert.Equal(t, origin, note.Folder.CreatedFrom)
	assert.NotZero(t, note.CreatedAt)

	got, err := f.engine.Get(ctx, notesResource(), f.request(f.owner, byID(note.ID)))
	require.NoError(t, err)
	assert.Equal(t, "Hello", *got.(*models.Note).Title)

	t.Run("ignored unique error reuses existing row", func(t *testing.T) {
		second := f.createNote(t, map[string]any{
			"title": "Second",
			"tag":   map[string]any{"label": "work"},
		})
		assert.Equal(t, *note.TagID, *second.TagID)
		assert.Equal(t, 1, f.count(t, models.Tags))
	})
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload map[string]any
		want    map[string]apperr.Code
	}{
		{
			name:    "wrong type",
			payload: map[string]any{"title": 5},
			want:    map[string]apperr.Code{"title": apperr.CodeInvalidType},
		},
		{
			name:    "unknown key",
			payload: map[string]any{"title": "t", "colour": "red"},
			want:    map[string]apperr.Code{"colour": apperr.CodeInvalidInput},
		},
		{
			name:    "nested wrong type",
			payload: map[string]any{"title": "t", "folder": map[string]any{"name": 5}},
			want:    map[string]apperr.Code{"folder.name": apperr.CodeInvalidType},
		},
		{
			name:    "relation is not an object",
			payload: map[string]any{"title": "t", "folder": "Inbox"},
			want:    map[string]apperr.Code{"folder": apperr.CodeInvalidType},
		},
		{
			name:    "parent and nested errors together",
			payload: map[string]any{"priority": "high", "tag": map[string]any{"label": true}},
			want: map[string]apperr.Code{
				"priority":  apperr.CodeInvalidType,
				"tag.label": apperr.CodeInvalidType,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Create(ctx, notesResource(), f.request(f.owner, nil), tt.payload)
			appErr := requireAppErr(t, err)
			assert.Equal(t, apperr.KindValidation, appErr.Kind())
			assert.Equal(t, tt.want, appErr.Fields())
		})
	}

	assert.Equal(t, 0, f.count(t, models.Notes))
	assert.Equal(t, 0, f.count(t, models.Folders))
}

type unreachableStore struct{}

func (unreachableStore) BeginTx(context.Context) (storage.Tx, error) {
	return nil, errors.New("storage must not be reached")
}

func (unreachableStore) Close() error { return nil }

func TestCreate_ValidationBeforeStorage(t *testing.T) {
	registry, err := models.NewRegistry()
	require.NoError(t, err)
	engine := NewEngine(unreachableStore{}, registry, logging.Discard(), nil)

	req := &Request{Principal: &auth.Principal{ID: 1}, Origin: origin}
	_, err = engine.Create(context.Background(), notesResource(), req, map[string]any{"title": []any{"x"}})

	appErr := requireAppErr(t, err)
	assert.Equal(t, apperr.KindValidation, appErr.Kind())
	assert.Equal(t, apperr.CodeInvalidType, appErr.Fields()["title"])
}

func TestCreate_StorageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createNote(t, map[string]any{"title": "Taken", "slug": "taken"})

	tests := []struct {
		name    string
		payload map[string]any
		field   string
		code    apperr.Code
	}{
		{"duplicate unique value", map[string]any{"title": "Again", "slug": "taken"}, "slug", apperr.CodeDuplicateUniqueValue},
		{"missing required column", map[string]any{"body": "no title"}, "title", apperr.CodeRequiredField},
		{"nested missing required column", map[string]any{"title": "t", "folder": map[string]any{}}, "folder.name", apperr.CodeRequiredField},
		{"dangling foreign key", map[string]any{"title": "t", "folder_id": 9999}, "folder_id", apperr.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Create(ctx, notesResource(), f.request(f.owner, nil), tt.payload)
			appErr := requireAppErr(t, err)
			assert.Equal(t, apperr.KindField, appErr.Kind())
			assert.Equal(t, map[string]apperr.Code{tt.field: tt.code}, appErr.Fields())
		})
	}

	t.Run("failed parent rolls back related rows", func(t *testing.T) {
		before := f.count(t, models.Folders)
		_, err := f.engine.Create(ctx, notesResource(), f.request(f.owner, nil), map[string]any{
			"title":  "Dup",
			"slug":   "taken",
			"folder": map[string]any{"name": "Orphan"},
		})
		require.Error(t, err)
		assert.Equal(t, before, f.count(t, models.Folders))
		assert.Equal(t, 1, f.count(t, models.Notes))
	})
}

func TestCreate_RequiredAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("user without email", func(t *testing.T) {
		users := &Resource{Descriptor: models.Users}
		admin := &auth.Principal{ID: f.owner.ID, Admin: true}
		before := f.count(t, models.Users)

		for range 2 {
			_, err := f.engine.Create(ctx, users, f.request(admin, nil), map[string]any{"display_name": "x"})
			appErr := requireAppErr(t, err)
			assert.Equal(t, map[string]apperr.Code{"email": apperr.CodeRequiredField}, appErr.Fields())
		}
		assert.Equal(t, before, f.count(t, models.Users))
	})

	t.Run("owned row without origin", func(t *testing.T) {
		req := f.request(f.owner, nil)
		req.Origin = ""
		_, err := f.engine.Create(ctx, notesResource(), req, map[string]any{"title": "Nowhere"})
		appErr := requireAppErr(t, err)
		assert.Equal(t, map[string]apperr.Code{"created_from": apperr.CodeRequiredField}, appErr.Fields())
	})
}

func TestCreate_DefaultsAndHooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []int64
	res := notesResource()
	res.InsertDefaults = func(*Request) map[string]any {
		return map[string]any{"priority": 3}
	}
	res.Hooks.PreCreate = func(_ context.Context, _ *Request, m resource.Model) error {
		if n := m.(*models.Note); n.Title != nil && *n.Title == "forbidden" {
			return apperr.Field("title", apperr.CodeInvalidInput)
		}
		return nil
	}
	res.Hooks.AfterCreate = func(_ context.Context, m resource.Model) {
		created = append(created, m.GetID())
	}

	m, err := f.engine.Create(ctx, res, f.request(f.owner, nil), map[string]any{"title": "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), *m.(*models.Note).Priority)
	assert.Equal(t, []int64{m.GetID()}, created)

	m, err = f.engine.Create(ctx, res, f.request(f.owner, nil), map[string]any{"title": "b", "priority": 9})
	require.NoError(t, err)
	assert.Equal(t, int64(9), *m.(*models.Note).Priority)

	_, err = f.engine.Create(ctx, res, f.request(f.owner, nil), map[string]any{"title": "forbidden"})
	appErr := requireAppErr(t, err)
	assert.Equal(t, apperr.KindField, appErr.Kind())
	assert.Len(t, created, 2)
	assert.Equal(t, 2, f.count(t, models.Notes))

	t.Run("before commit failure rolls back", func(t *testing.T) {
		res := notesResource()
		res.Hooks.BeforeCreateCommit = func(context.Context, storage.Tx, resource.Model) error {
			return errors.New("boom")
		}
		_, err := f.engine.Create(ctx, res, f.request(f.owner, nil), map[string]any{"title": "c"})
		appErr := requireAppErr(t, err)
		assert.Equal(t, apperr.KindServer, appErr.Kind())
		assert.Equal(t, 2, f.count(t, models.Notes))
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := f.createNote(t, map[string]any{
		"title":    "Original",
		"body":     "Body",
		"priority": 2,
		"folder":   map[string]any{"name": "Inbox"},
	})
	folderID := *note.FolderID

	t.Run("partial keeps absent attributes", func(t *testing.T) {
		m, err := f.engine.Update(ctx, notesResource(), f.request(f.owner, byID(note.ID)), map[string]any{"body": "Edited"}, true)
		require.NoError(t, err)
		got := m.(*models.Note)
		assert.Equal(t, "Original", *got.Title)
		assert.Equal(t, "Edited", *got.Body)
		assert.Equal(t, int64(2), *got.Priority)
		assert.Equal(t, f.owner.ID, *got.UpdatedBy)
	})

	t.Run("nested object updates linked row in place", func(t *testing.T) {
		m, err := f.engine.Update(ctx, notesResource(), f.request(f.owner, byID(note.ID)),
			map[string]any{"folder": map[string]any{"name": "Renamed"}}, true)
		require.NoError(t, err)
		got := m.(*models.Note)
		assert.Equal(t, folderID, *got.FolderID)
		require.NotNil(t, got.Folder)
		assert.Equal(t, "Renamed", *got.Folder.Name)
		assert.Equal(t, 1, f.count(t, models.Folders))
	})

	t.Run("nested object without link inserts new row", func(t *testing.T) {
		m, err := f.engine.Update(ctx, notesResource(), f.request(f.owner, byID(note.ID)),
			map[string]any{"tag": map[string]any{"label": "fresh"}}, true)
		require.NoError(t, err)
		got := m.(*models.Note)
		require.NotNil(t, got.TagID)
		assert.Equal(t, got.Tag.ID, *got.TagID)
	})

	t.Run("full replaces writable attributes", func(t *testing.T) {
		m, err := f.engine.Update(ctx, notesResource(), f.request(f.owner, byID(note.ID)), map[string]any{"title": "Only"}, false)
		require.NoError(t, err)
		got := m.(*models.Note)
		assert.Equal(t, "Only", *got.Title)
		assert.Nil(t, got.Body)
		assert.Nil(t, got.Priority)
		assert.Nil(t, got.FolderID)
		assert.Equal(t, note.ID, got.ID)
		assert.Equal(t, note.CreatedAt, got.CreatedAt)
		assert.Equal(t, origin, got.CreatedFrom)
		assert.Equal(t, f.owner.ID, *got.CreatedBy)
	})

	t.Run("storage error rolls back", func(t *testing.T) {
		f.createNote(t, map[string]any{"title": "Other", "slug": "other"})
		_, err := f.engine.Update(ctx, notesResource(), f.request(f.owner, byID(note.ID)),
			map[string]any{"slug": "other", "body": "lost"}, true)
		appErr := requireAppErr(t, err)
		assert.Equal(t, apperr.CodeDuplicateUniqueValue, appErr.Fields()["slug"])

		m, err := f.engine.Get(ctx, notesResource(), f.request(f.owner, byID(note.ID)))
		require.NoError(t, err)
		assert.Nil(t, m.(*models.Note).Body)
	})

	t.Run("pre-update hook vetoes", func(t *testing.T) {
		res := notesResource()
		res.Hooks.PreUpdate = func(_ context.Context, _ *Request, existing, incoming resource.Model) error {
			if *incoming.(*models.Note).Title != *existing.(*models.Note).Title {
				return apperr.Field("title", apperr.CodeInvalidInput)
			}
			return nil
		}
		_, err := f.engine.Update(ctx, res, f.request(f.owner, byID(note.ID)), map[string]any{"title": "Changed"}, true)
		appErr := requireAppErr(t, err)
		assert.Equal(t, map[string]apperr.Code{"title": apperr.CodeInvalidInput}, appErr.Fields())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.engine.Update(ctx, notesResource(), f.request(f.owner, byID(9999)), map[string]any{"body": "x"}, true)
		assert.Equal(t, apperr.KindNotFound, requireAppErr(t, err).Kind())
	})
}

func TestAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	note := f.createNote(t, map[string]any{"title": "Private"})

	t.Run("ownership filter requires a principal", func(t *testing.T) {
		_, err := f.engine.List(ctx, notesResource(), f.request(nil, nil))
		assert.Equal(t, apperr.KindUnauthenticated, requireAppErr(t, err).Kind())
	})

	t.Run("rows of other owners are invisible", func(t *testing.T) {
		_, err := f.engine.Get(ctx, notesResource(), f.request(f.other, byID(note.ID)))
		assert.Equal(t, apperr.KindNotFound, requireAppErr(t, err).Kind())

		page, err := f.engine.List(ctx, notesResource(), f.request(f.other, nil))
		require.NoError(t, err)
		assert.Equal(t, 0, page.TotalCount)
	})

	t.Run("owner required rejects other principals", func(t *testing.T) {
		res := notesResource()
		res.FilterByOwner = false
		res.Access = map[Action]Access{ActionGet: OwnerRequired, ActionDelete: OwnerOrAdmin}

		_, err := f.engine.Get(ctx, res, f.request(f.other, byID(note.ID)))
		assert.Equal(t, apperr.KindUnauthorized, requireAppErr(t, err).Kind())

		_, err = f.engine.Get(ctx, res, f.request(nil, byID(note.ID)))
		assert.Equal(t, apperr.KindUnauthenticated, requireAppErr(t, err).Kind())

		err = f.engine.Delete(ctx, res, f.request(f.other, byID(note.ID)))
		assert.Equal(t, apperr.KindUnauthorized, requireAppErr(t, err).Kind())

		admin := &auth.Principal{ID: f.other.ID, Admin: true}
		require.NoError(t, f.engine.Delete(ctx, res, f.request(admin, byID(note.ID))))
	})

	t.Run("admin required", func(t *testing.T) {
		res := tagsResource()
		res.Access = map[Action]Access{ActionCreate: AdminRequired}

		_, err := f.engine.Create(ctx, res, f.request(f.owner, nil), map[string]any{"label": "x"})
		assert.Equal(t, apperr.KindUnauthorized, requireAppErr(t, err).Kind())

		admin := &auth.Principal{ID: f.owner.ID, Admin: true}
		_, err = f.engine.Create(ctx, res, f.request(admin, nil), map[string]any{"label": "x"})
		require.NoError(t, err)
	})
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, label := range []string{"a", "b", "c", "d", "e"} {
		_, err := f.engine.Create(ctx, tagsResource(), f.request(nil, nil), map[string]any{"label": label})
		require.NoError(t, err)
	}

	req := f.request(nil, nil)
	req.Query = url.Values{"page[number]": {"3"}, "page[size]": {"2"}}
	page, err := f.engine.List(ctx, tagsResource(), req)
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e", *page.Items[0].(*models.Tag).Label)

	req.Query = url.Values{"page[number]": {"9"}, "page[size]": {"2"}}
	page, err = f.engine.List(ctx, tagsResource(), req)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.TotalCount)

	t.Run("query filters", func(t *testing.T) {
		f.createNote(t, map[string]any{"title": "p1", "pinned": true, "priority": 1})
		f.createNote(t, map[string]any{"title": "p2", "pinned": false, "priority": 2})
		f.createNote(t, map[string]any{"title": "p3", "pinned": true, "priority": 3})

		req := f.request(f.owner, nil)
		req.Query = url.Values{"pinned": {"true"}, "ignored": {"x"}}
		page, err := f.engine.List(ctx, notesResource(), req)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "p1", *page.Items[0].(*models.Note).Title)
		assert.Equal(t, "p3", *page.Items[1].(*models.Note).Title)

		req.Query = url.Values{"priority": {"2", "3", "bogus"}}
		page, err = f.engine.List(ctx, notesResource(), req)
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalCount)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("soft delete hides the row", func(t *testing.T) {
		note := f.createNote(t, map[string]any{"title": "Doomed"})
		require.NoError(t, f.engine.Delete(ctx, notesResource(), f.request(f.owner, byID(note.ID))))

		_, err := f.engine.Get(ctx, notesResource(), f.request(f.owner, byID(note.ID)))
		assert.Equal(t, apperr.KindNotFound, requireAppErr(t, err).Kind())

		err = f.engine.Delete(ctx, notesResource(), f.request(f.owner, byID(note.ID)))
		assert.Equal(t, apperr.KindNotFound, requireAppErr(t, err).Kind())

		assert.Equal(t, 1, f.count(t, models.Notes))
	})

	t.Run("hard delete restricted by references", func(t *testing.T) {
		tag, err := f.engine.Create(ctx, tagsResource(), f.request(nil, nil), map[string]any{"label": "used"})
		require.NoError(t, err)
		f.createNote(t, map[string]any{"title": "Tagged", "tag_id": tag.GetID()})

		err = f.engine.Delete(ctx, tagsResource(), f.request(nil, byID(tag.GetID())))
		appErr := requireAppErr(t, err)
		assert.Equal(t, map[string]apperr.Code{"id": apperr.CodeInvalidInput}, appErr.Fields())

		free, err := f.engine.Create(ctx, tagsResource(), f.request(nil, nil), map[string]any{"label": "free"})
		require.NoError(t, err)
		require.NoError(t, f.engine.Delete(ctx, tagsResource(), f.request(nil, byID(free.GetID()))))
		assert.Equal(t, 1, f.count(t, models.Tags))
	})
}
