package resource

import "fmt"

// Audit holds the audit attributes of owned resources. Embed it in a model and
// append AuditColumns to the model's columns.
type Audit struct {
	// CreatedAt is the unix time (UTC) assigned by storage on insert.
	CreatedAt int64 `json:"created_at"`

	// CreatedFrom is the origin network address of the creating request.
	CreatedFrom string `json:"created_from"`

	// CreatedBy is the owning principal id.
	CreatedBy *int64 `json:"created_by"`

	// UpdatedBy is the principal id of the last update.
	UpdatedBy *int64 `json:"updated_by,omitempty"`
}

// Audited is implemented by models embedding Audit.
type Audited interface {
	AuditFields() *Audit
}

// AuditFields returns the embedded audit attributes.
func (a *Audit) AuditFields() *Audit {
	return a
}

// AuditColumns returns the audit columns.
func (a *Audit) AuditColumns() []Column {
	var from any
	if a.CreatedFrom != "" {
		from = a.CreatedFrom
	}
	return []Column{
		{Name: "created_at", Value: a.CreatedAt, Dest: &a.CreatedAt, ReadOnly: true},
		{Name: "created_from", Value: from, Dest: nullString{&a.CreatedFrom}},
		{Name: "created_by", Value: Deref(a.CreatedBy), Dest: &a.CreatedBy},
		{Name: "updated_by", Value: Deref(a.UpdatedBy), Dest: &a.UpdatedBy},
	}
}

// nullString scans a nullable TEXT column into a plain string.
type nullString struct{ s *string }

func (n nullString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n.s = ""
	case string:
		*n.s = v
	case []byte:
		*n.s = string(v)
	default:
		return fmt.Errorf("resource: cannot scan %T into string", src)
	}
	return nil
}
