package models

import "github.com/mmynk/backstack/internal/resource"

// Tags describes the tags table. Tags are shared and not owned.
var Tags = &resource.Descriptor{
	Name:  "tags",
	Table: "tags",
	New:   func() resource.Model { return &Tag{} },
}

// Tag is a shared label.
type Tag struct {
	ID        int64   `json:"id"`
	Label     *string `json:"label"`
	CreatedAt int64   `json:"created_at"`
}

func (t *Tag) Descriptor() *resource.Descriptor { return Tags }
func (t *Tag) GetID() int64                     { return t.ID }
func (t *Tag) SetID(id int64)                   { t.ID = id }

func (t *Tag) Columns() []resource.Column {
	return []resource.Column{
		{Name: "label", Value: resource.Deref(t.Label), Dest: &t.Label},
		{Name: "created_at", Value: t.CreatedAt, Dest: &t.CreatedAt, ReadOnly: true},
	}
}
