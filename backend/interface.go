package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ResourceType names one of the upstream collections.
type ResourceType string

const (
	Contacts ResourceType = "contacts"
	Projects ResourceType = "projects"
	Files    ResourceType = "files"
	Tasks    ResourceType = "tasks"
)

// AllResourceTypes returns every supported resource type in display order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{Contacts, Projects, Files, Tasks}
}

// ParseResourceType converts a user-supplied name into a ResourceType.
// Singular names are accepted.
func ParseResourceType(name string) (ResourceType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, rt := range AllResourceTypes() {
		if n == string(rt) || n == rt.Singular() {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown resource type: %q", name)
}

// Singular returns the singular resource name ("contact" for contacts).
func (r ResourceType) Singular() string {
	return strings.TrimSuffix(string(r), "s")
}

// Mutable reports whether records of this type support update and delete.
func (r ResourceType) Mutable() bool {
	return r == Projects || r == Tasks
}

// ListPath is the collection endpoint.
func (r ResourceType) ListPath() string {
	return "/" + string(r)
}

// ItemPath is the endpoint for a single record. Contact detail lives under
// the singular "/contact/{id}" path upstream.
// The id is escaped as a single path segment.
func (r ResourceType) ItemPath(id string) string {
	seg := url.PathEscape(id)
	if id == "." || id == ".." {
		seg = strings.ReplaceAll(id, ".", "%2E")
	}
	if r == Contacts {
		return "/contact/" + seg
	}
	return "/" + string(r) + "/" + seg
}

// ID is a record identifier. The API sends numbers; some endpoints send strings.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integer IDs as numbers and everything else,
// including "007" and "+5", as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Contact is a CRM contact.
type Contact struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Project is a client project.
type Project struct {
	ID          ID     `json:"id"`
	Name        string `json:"name,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// File is an uploaded file, optionally attached to a project.
type File struct {
	ID        ID     `json:"id"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	Size      int64  `json:"size,omitempty"`
	ProjectID ID     `json:"project_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Task is a project task.
type Task struct {
	ID        ID     `json:"id"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status,omitempty"`
	ProjectID ID     `json:"project_id,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
}

func (c Contact) RecordID() ID { return c.ID }
func (p Project) RecordID() ID { return p.ID }
func (f File) RecordID() ID    { return f.ID }
func (t Task) RecordID() ID    { return t.ID }

// Title is the primary line shown for the record in a list.
func (c Contact) Title() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
func (p Project) Title() string { return p.Name }
func (f File) Title() string    { return f.Name }
func (t Task) Title() string    { return t.Name }

// Subtitle is the secondary line shown for the record in a list.
func (c Contact) Subtitle() string { return c.Email }
func (p Project) Subtitle() string { return statusLine(p.Status) }
func (f File) Subtitle() string {
	if f.Type == "" {
		return ""
	}
	return "Type: " + f.Type
}
func (t Task) Subtitle() string { return statusLine(t.Status) }

func statusLine(status string) string {
	if status == "" {
		return ""
	}
	return "Status: " + status
}

// Record is the set of typed resources the generic clients work over.
type Record interface {
	Contact | Project | File | Task
	RecordID() ID
	Title() string
	Subtitle() string
}

// TypeOf returns the resource type a record belongs to.
func TypeOf[T Record]() ResourceType {
	var zero T
	switch any(zero).(type) {
	case Contact:
		return Contacts
	case Project:
		return Projects
	case File:
		return Files
	default:
		return Tasks
	}
}

// DecodeList extracts records from a list response. The API wraps pages as
// {"<type>": [...]}; a missing key yields an empty page and a bare array is
// accepted as is.
func DecodeList[T Record](rt ResourceType, raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", rt, err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", rt, err)
	}
	body, ok := envelope[string(rt)]
	if !ok || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return items, nil
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", rt, err)
	}
	return items, nil
}

// DecodeItem extracts a single record from either {"<singular>": {...}} or
// the bare object.
func DecodeItem[T Record](rt ResourceType, raw []byte) (T, error) {
	var item T

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return item, fmt.Errorf("decode %s: %w", rt.Singular(), err)
	}
	body := json.RawMessage(raw)
	if inner, ok := envelope[rt.Singular()]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
		body = inner
	}
	if err := json.Unmarshal(body, &item); err != nil {
		return item, fmt.Errorf("decode %s: %w", rt.Singular(), err)
	}
	return item, nil
}
