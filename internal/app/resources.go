package app

import (
	"context"

	"github.com/mmynk/backstack/internal/crud"
	"github.com/mmynk/backstack/internal/endpoint"
	"github.com/mmynk/backstack/internal/filter"
	"github.com/mmynk/backstack/internal/models"
	"github.com/mmynk/backstack/internal/resource"
	"github.com/mmynk/backstack/pkg/logging"
)

// lockedPassword is stored for accounts provisioned by an admin. No bcrypt
// hash matches it, so such accounts cannot log in.
const lockedPassword = "!"

// Resources returns the resource configurations served by the application,
// keyed by resource name.
func Resources() map[string]*crud.Resource {
	admin := map[crud.Action]crud.Access{
		crud.ActionList:   crud.AdminRequired,
		crud.ActionGet:    crud.AdminRequired,
		crud.ActionCreate: crud.AdminRequired,
		crud.ActionUpdate: crud.AdminRequired,
		crud.ActionDelete: crud.AdminRequired,
	}

	return map[string]*crud.Resource{
		"users": {
			Descriptor: models.Users,
			Filter: filter.Config{
				PathFields: map[string][]string{"id": {"id"}},
				QueryParams: map[string]filter.Field{
					"email":    {Column: "email", Kind: filter.KindString},
					"is_admin": {Column: "is_admin", Kind: filter.KindBool},
				},
			},
			Access: admin,
			Hooks: crud.Hooks{
				PreCreate: func(_ context.Context, _ *crud.Request, m resource.Model) error {
					m.(*models.User).PasswordHash = lockedPassword
					return nil
				},
				PreUpdate: func(_ context.Context, _ *crud.Request, existing, incoming resource.Model) error {
					incoming.(*models.User).PasswordHash = existing.(*models.User).PasswordHash
					return nil
				},
			},
		},
		"tags": {
			Descriptor: models.Tags,
			Filter: filter.Config{
				PathFields:  map[string][]string{"id": {"id"}},
				QueryParams: map[string]filter.Field{"label": {Column: "label", Kind: filter.KindString}},
			},
			Access: map[crud.Action]crud.Access{
				crud.ActionCreate: crud.LoginRequired,
				crud.ActionUpdate: crud.AdminRequired,
				crud.ActionDelete: crud.AdminRequired,
			},
		},
		"folders": {
			Descriptor: models.Folders,
			Filter: filter.Config{
				PathFields: map[string][]string{"id": {"id"}},
				QueryParams: map[string]filter.Field{
					"name":      {Column: "name", Kind: filter.KindString},
					"parent_id": {Column: "parent_id", Kind: filter.KindInt},
				},
			},
			FilterByOwner: true,
			SaveCreator:   true,
		},
		"notes": {
			Descriptor: models.Notes,
			Filter: filter.Config{
				// A note is addressed by id or by slug.
				PathFields: map[string][]string{
					"ref":    {"id", "slug"},
					"folder": {"folder_id"},
				},
				QueryParams: map[string]filter.Field{
					"pinned":    {Column: "pinned", Kind: filter.KindBool},
					"priority":  {Column: "priority", Kind: filter.KindInt},
					"folder_id": {Column: "folder_id", Kind: filter.KindInt},
					"tag_id":    {Column: "tag_id", Kind: filter.KindInt},
					"slug":      {Column: "slug", Kind: filter.KindString},
				},
			},
			FilterByOwner:      true,
			SaveCreator:        true,
			RelatedToPersist:   []string{"folder", "tag"},
			RelatedToUpdate:    []string{"folder"},
			IgnoreUniqueErrors: []string{"tags.label"},
			InsertDefaults: func(*crud.Request) map[string]any {
				return map[string]any{"pinned": false}
			},
			Hooks: crud.Hooks{
				AfterCreate: func(ctx context.Context, m resource.Model) {
					logging.FromContext(ctx).Debug("Note created", "id", m.GetID(), "folder_id", m.(*models.Note).FolderID)
				},
			},
		},
	}
}

// Endpoints binds the resources to their URL patterns.
func Endpoints(resources map[string]*crud.Resource) []endpoint.Endpoint {
	return []endpoint.Endpoint{
		{Collection: "/users", Item: "/users/{id}", Resource: resources["users"]},
		{Collection: "/tags", Item: "/tags/{id}", Resource: resources["tags"]},
		{Collection: "/folders", Item: "/folders/{id}", Resource: resources["folders"]},
		{Collection: "/folders/{folder}/notes", Resource: resources["notes"]},
		{Collection: "/notes", Item: "/notes/{ref}", Resource: resources["notes"]},
	}
}
