package models

import "github.com/mmynk/backstack/internal/resource"

// Notes describes the notes table. Deleting a note only stamps deleted_at.
var Notes = &resource.Descriptor{
	Name:             "notes",
	Table:            "notes",
	OwnerColumn:      "created_by",
	SoftDeleteColumn: "deleted_at",
	ForeignKeys: []resource.ForeignKey{
		{Column: "folder_id", References: "folders"},
		{Column: "tag_id", References: "tags"},
		{Column: "created_by", References: "users"},
		{Column: "updated_by", References: "users"},
	},
	Relations: []resource.Relation{
		resource.BelongsTo("folder", "folder_id", "folders", resource.Accessors[*Note, *Folder]{
			Get:  func(n *Note) *Folder { return n.Folder },
			Set:  func(n *Note, f *Folder) { n.Folder = f },
			Key:  func(n *Note) *int64 { return n.FolderID },
			Link: func(n *Note, id int64) { n.FolderID = &id },
		}),
		resource.BelongsTo("tag", "tag_id", "tags", resource.Accessors[*Note, *Tag]{
			Get:  func(n *Note) *Tag { return n.Tag },
			Set:  func(n *Note, t *Tag) { n.Tag = t },
			Key:  func(n *Note) *int64 { return n.TagID },
			Link: func(n *Note, id int64) { n.TagID = &id },
		}),
	},
	New: func() resource.Model { return &Note{} },
}

// Note is an owned document.
type Note struct {
	ID       int64   `json:"id"`
	Title    *string `json:"title"`
	Slug     *string `json:"slug"`
	Body     *string `json:"body"`
	Priority *int64  `json:"priority"`
	Pinned   bool    `json:"pinned"`
	FolderID *int64  `json:"folder_id"`
	TagID    *int64  `json:"tag_id"`

	// DeletedAt is set when the note is deleted.
	DeletedAt *int64 `json:"-"`

	resource.Audit

	// Folder and Tag hold related instances persisted alongside the note.
	Folder *Folder `json:"folder,omitempty"`
	Tag    *Tag    `json:"tag,omitempty"`
}

func (n *Note) Descriptor() *resource.Descriptor { return Notes }
func (n *Note) GetID() int64                     { return n.ID }
func (n *Note) SetID(id int64)                   { n.ID = id }

func (n *Note) Columns() []resource.Column {
	return append([]resource.Column{
		{Name: "title", Value: resource.Deref(n.Title), Dest: &n.Title},
		{Name: "slug", Value: resource.Deref(n.Slug), Dest: &n.Slug},
		{Name: "body", Value: resource.Deref(n.Body), Dest: &n.Body},
		{Name: "priority", Value: resource.Deref(n.Priority), Dest: &n.Priority},
		{Name: "pinned", Value: n.Pinned, Dest: &n.Pinned},
		{Name: "folder_id", Value: resource.Deref(n.FolderID), Dest: &n.FolderID},
		{Name: "tag_id", Value: resource.Deref(n.TagID), Dest: &n.TagID},
		{Name: "deleted_at", Value: resource.Deref(n.DeletedAt), Dest: &n.DeletedAt, ReadOnly: true},
	}, n.AuditColumns()...)
}
