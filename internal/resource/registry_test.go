package resource_test

import (
	"errors"
	"testing"

	"github.com/mmynk/backstack/internal/resource"
)

type author struct {
	ID   int64
	Name *string
}

type book struct {
	ID       int64
	Title    *string
	AuthorID *int64
	Author   *author
}

var authors = &resource.Descriptor{
	Name:  "authors",
	Table: "authors",
	New:   func() resource.Model { return &author{} },
}

var books = &resource.Descriptor{
	Name:        "books",
	Table:       "books",
	ForeignKeys: []resource.ForeignKey{{Column: "author_id", References: "authors"}},
	Relations: []resource.Relation{
		resource.BelongsTo("author", "author_id", "authors", resource.Accessors[*book, *author]{
			Get:  func(b *book) *author { return b.Author },
			Set:  func(b *book, a *author) { b.Author = a },
			Key:  func(b *book) *int64 { return b.AuthorID },
			Link: func(b *book, id int64) { b.AuthorID = &id },
		}),
	},
	New: func() resource.Model { return &book{} },
}

func (a *author) Descriptor() *resource.Descriptor { return authors }
func (a *author) GetID() int64                     { return a.ID }
func (a *author) SetID(id int64)                   { a.ID = id }
func (a *author) Columns() []resource.Column {
	return []resource.Column{{Name: "name", Value: resource.Deref(a.Name), Dest: &a.Name}}
}

func (b *book) Descriptor() *resource.Descriptor { return books }
func (b *book) GetID() int64                     { return b.ID }
func (b *book) SetID(id int64)                   { b.ID = id }
func (b *book) Columns() []resource.Column {
	return []resource.Column{
		{Name: "title", Value: resource.Deref(b.Title), Dest: &b.Title},
		{Name: "author_id", Value: resource.Deref(b.AuthorID), Dest: &b.AuthorID},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := resource.NewRegistry()
	if err := r.Register(authors); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	d, ok := r.Lookup("authors")
	if !ok || d != authors {
		t.Fatalf("expected authors descriptor, got %v (ok=%v)", d, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("expected lookup of unknown name to fail")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := resource.NewRegistry()
	_ = r.Register(authors)

	err := r.Register(authors)
	if !errors.Is(err, resource.ErrDuplicateResource) {
		t.Errorf("expected ErrDuplicateResource, got %v", err)
	}
}

func TestRegistry_Validate(t *testing.T) {
	t.Run("resolved relation", func(t *testing.T) {
		r := resource.NewRegistry()
		_ = r.Register(authors)
		_ = r.Register(books)
		if err := r.Validate(); err != nil {
			t.Errorf("expected valid registry, got %v", err)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		r := resource.NewRegistry()
		_ = r.Register(books)
		if err := r.Validate(); !errors.Is(err, resource.ErrInvalidRelation) {
			t.Errorf("expected ErrInvalidRelation, got %v", err)
		}
	})

	t.Run("undeclared foreign key", func(t *testing.T) {
		broken := *books
		broken.Name = "broken"
		broken.ForeignKeys = nil

		r := resource.NewRegistry()
		_ = r.Register(authors)
		_ = r.Register(&broken)
		if err := r.Validate(); !errors.Is(err, resource.ErrInvalidRelation) {
			t.Errorf("expected ErrInvalidRelation, got %v", err)
		}
	})
}

func TestRelation_Accessors(t *testing.T) {
	rel, ok := books.Relation("author")
	if !ok {
		t.Fatal("expected author relation")
	}

	b := &book{}
	if rel.Related(b) != nil {
		t.Error("expected nil related instance on empty book")
	}
	if rel.KeyValue(b) != nil {
		t.Error("expected nil foreign key on empty book")
	}

	a := &author{}
	rel.Attach(b, a)
	if rel.Related(b) != a {
		t.Error("expected attached author to be returned")
	}

	rel.Link(b, 42)
	if got := rel.KeyValue(b); got == nil || *got != 42 {
		t.Errorf("expected foreign key 42, got %v", got)
	}
}

func TestColumnValue(t *testing.T) {
	title := "Dune"
	b := &book{ID: 7, Title: &title}

	if v, ok := resource.ColumnValue(b, "id"); !ok || v != int64(7) {
		t.Errorf("id: got %v (ok=%v)", v, ok)
	}
	if v, ok := resource.ColumnValue(b, "title"); !ok || v != "Dune" {
		t.Errorf("title: got %v (ok=%v)", v, ok)
	}
	if v, ok := resource.ColumnValue(b, "author_id"); !ok || v != nil {
		t.Errorf("author_id: expected NULL, got %v (ok=%v)", v, ok)
	}
	if _, ok := resource.ColumnValue(b, "missing"); ok {
		t.Error("expected unknown column to be reported")
	}
}
