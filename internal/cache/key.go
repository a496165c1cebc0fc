package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached response. Equal keys always render to the same string.
type Key struct {
	Resource string // plural resource name, e.g. "contacts"
	Op       string // "list", "get" or "files"
	Page     int
	PageSize int
	ID       string
}

// ListKey builds the key for one page of a resource collection.
func ListKey(resource string, page, pageSize int) Key {
	return Key{Resource: resource, Op: "list", Page: page, PageSize: pageSize}
}

// ItemKey builds the key for a single record.
func ItemKey(resource, id string) Key {
	return Key{Resource: resource, Op: "get", ID: id}
}

// ProjectFilesKey builds the key for one page of the files attached to a project.
func ProjectFilesKey(projectID string, page, pageSize int) Key {
	return Key{Resource: "files", Op: "project", ID: projectID, Page: page, PageSize: pageSize}
}

// String renders the storage key: "contacts_p1_n20" for list pages,
// "contact_42" for single records and "files_project7_p1_n20" for project files.
func (k Key) String() string {
	switch k.Op {
	case "get":
		return fmt.Sprintf("%s_%s", Singular(k.Resource), k.ID)
	case "project":
		return fmt.Sprintf("%s_project%s_p%d_n%d", k.Resource, k.ID, k.Page, k.PageSize)
	default:
		return fmt.Sprintf("%s_p%d_n%d", k.Resource, k.Page, k.PageSize)
	}
}

// Singular trims the trailing "s" from a plural resource name.
func Singular(resource string) string {
	return strings.TrimSuffix(resource, "s")
}

// ResourcePrefixes returns the key prefixes owned by a resource: its list
// pages and its single records.
func ResourcePrefixes(resource string) []string {
	return []string{resource + "_", Singular(resource) + "_"}
}

// HasAnyPrefix returns a matcher for RemoveMatching.
func HasAnyPrefix(prefixes ...string) func(string) bool {
	return func(key string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				return true
			}
		}
		return false
	}
}
