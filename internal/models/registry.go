package models

import (
	"fmt"

	"github.com/mmynk/backstack/internal/resource"
)

// NewRegistry returns a registry holding every built-in resource type.
func NewRegistry() (*resource.Registry, error) {
	r := resource.NewRegistry()
	for _, d := range []*resource.Descriptor{Users, Tags, Folders, Notes} {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resource registry: %w", err)
	}
	return r, nil
}
