package models

import "github.com/mmynk/backstack/internal/resource"

// Folders describes the folders table.
var Folders = &resource.Descriptor{
	Name:        "folders",
	Table:       "folders",
	OwnerColumn: "created_by",
	ForeignKeys: []resource.ForeignKey{
		{Column: "parent_id", References: "folders"},
		{Column: "created_by", References: "users"},
		{Column: "updated_by", References: "users"},
	},
	New: func() resource.Model { return &Folder{} },
}

// Folder groups notes. Folders may be nested through ParentID.
type Folder struct {
	ID       int64   `json:"id"`
	Name     *string `json:"name"`
	ParentID *int64  `json:"parent_id"`
	resource.Audit
}

func (f *Folder) Descriptor() *resource.Descriptor { return Folders }
func (f *Folder) GetID() int64                     { return f.ID }
func (f *Folder) SetID(id int64)                   { f.ID = id }

func (f *Folder) Columns() []resource.Column {
	return append([]resource.Column{
		{Name: "name", Value: resource.Deref(f.Name), Dest: &f.Name},
		{Name: "parent_id", Value: resource.Deref(f.ParentID), Dest: &f.ParentID},
	}, f.AuditColumns()...)
}
