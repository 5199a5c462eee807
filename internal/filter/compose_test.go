package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/backstack/internal/resource"
)

var notes = &resource.Descriptor{
	Name:             "notes",
	Table:            "notes",
	OwnerColumn:      "created_by",
	SoftDeleteColumn: "deleted_at",
}

var tags = &resource.Descriptor{Name: "tags", Table: "tags"}

func TestCompose(t *testing.T) {
	cfg := Config{
		Defaults:   []Predicate{Eq("pinned", true)},
		PathFields: map[string][]string{"id": {"id"}, "ref": {"id", "slug"}},
		QueryParams: map[string]Field{
			"folder":   {Column: "folder_id", Kind: KindInt},
			"priority": {Column: "priority", Kind: KindInt},
			"title":    {Column: "title", Kind: KindString},
		},
	}

	tests := []struct {
		name      string
		desc      *resource.Descriptor
		path      map[string]string
		query     url.Values
		principal int64
		owned     bool
		want      []Predicate
	}{
		{
			name: "defaults only",
			desc: notes,
			want: []Predicate{IsNull("deleted_at"), Eq("pinned", true)},
		},
		{
			name: "path capture",
			desc: notes,
			path: map[string]string{"id": "7", "unmapped": "x"},
			want: []Predicate{IsNull("deleted_at"), Eq("pinned", true), Eq("id", "7")},
		},
		{
			name: "capture mapped to several fields",
			desc: notes,
			path: map[string]string{"ref": "hello"},
			want: []Predicate{IsNull("deleted_at"), Eq("pinned", true), AnyOf(Eq("id", "hello"), Eq("slug", "hello"))},
		},
		{
			name:  "query params are allow-listed and parsed",
			desc:  notes,
			query: url.Values{"folder": {"1", "two", "3"}, "secret": {"x"}, "priority": {"high"}},
			want:  []Predicate{IsNull("deleted_at"), Eq("pinned", true), In("folder_id", int64(1), int64(3))},
		},
		{
			name:      "ownership when required",
			desc:      notes,
			principal: 42,
			owned:     true,
			want:      []Predicate{IsNull("deleted_at"), Eq("pinned", true), Eq("created_by", int64(42))},
		},
		{
			name:      "no ownership when not required",
			desc:      notes,
			principal: 42,
			want:      []Predicate{IsNull("deleted_at"), Eq("pinned", true)},
		},
		{
			name:  "no ownership without principal",
			desc:  notes,
			owned: true,
			want:  []Predicate{IsNull("deleted_at"), Eq("pinned", true)},
		},
		{
			name:      "no ownership on unowned type",
			desc:      tags,
			principal: 42,
			owned:     true,
			query:     url.Values{"title": {"a", " "}},
			want:      []Predicate{Eq("pinned", true), In("title", "a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.desc, cfg, tt.path, tt.query, tt.principal, tt.owned)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompose_NoSources(t *testing.T) {
	assert.Empty(t, Compose(tags, Config{}, nil, nil, 0, false))
}
