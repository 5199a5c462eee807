// Package models defines the built-in resource types served by Backstack.
//
// # Resources
//
//   - User: a registered account; the principal of authenticated requests
//   - Folder: an owned container for notes, optionally nested under a parent folder
//   - Note: an owned, soft-deletable document; may reference a folder and a tag
//   - Tag: a shared label, unique by text
//
// # Relations
//
// Notes declare two cascadable relations, "folder" and "tag". A create or
// update payload may carry a nested object under either key; the related row
// is persisted first and its id is copied into the note. Folder.parent_id is
// a plain foreign key and is never cascaded.
//
// # Registry
//
// NewRegistry returns a validated registry of all four descriptors.
package models
