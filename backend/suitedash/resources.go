package suitedash

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"suitedash/backend"
)

// Resources is typed access to one resource collection.
type Resources[T backend.Record] struct {
	client *Client
	rt     backend.ResourceType
}

// For returns typed access to the collection holding T.
func For[T backend.Record](c *Client) *Resources[T] {
	return &Resources[T]{client: c, rt: backend.TypeOf[T]()}
}

// Type returns the resource type.
func (r *Resources[T]) Type() backend.ResourceType {
	return r.rt
}

// List fetches and decodes one page.
func (r *Resources[T]) List(ctx context.Context, page, pageSize int, useCache bool) ([]T, error) {
	raw, err := r.client.List(ctx, r.rt, page, pageSize, useCache)
	if err != nil {
		return nil, err
	}
	return backend.DecodeList[T](r.rt, raw)
}

// Get fetches and decodes one record.
func (r *Resources[T]) Get(ctx context.Context, id string, useCache bool) (T, error) {
	raw, err := r.client.Get(ctx, r.rt, id, useCache)
	if err != nil {
		var zero T
		return zero, err
	}
	return backend.DecodeItem[T](r.rt, raw)
}

// Create posts payload and decodes the created record.
func (r *Resources[T]) Create(ctx context.Context, payload any) (T, error) {
	raw, err := r.client.Create(ctx, r.rt, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOptional[T](r.rt, raw)
}

// Update sends payload for id and decodes the updated record.
func (r *Resources[T]) Update(ctx context.Context, id string, payload any) (T, error) {
	raw, err := r.client.Update(ctx, r.rt, id, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOptional[T](r.rt, raw)
}

// Delete removes id.
func (r *Resources[T]) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.rt, id)
}

// decodeOptional decodes a mutation response, tolerating an empty body.
func decodeOptional[T backend.Record](rt backend.ResourceType, raw []byte) (T, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		var zero T
		return zero, nil
	}
	return backend.DecodeItem[T](rt, raw)
}

// ProjectFiles lists one page of the files attached to projectID.
func ProjectFiles(ctx context.Context, c *Client, projectID string, page, pageSize int, useCache bool) ([]backend.File, error) {
	raw, err := c.ListProjectFiles(ctx, projectID, page, pageSize, useCache)
	if err != nil {
		return nil, err
	}
	return backend.DecodeList[backend.File](backend.Files, raw)
}

// UploadFile uploads the file at path, attaching it to projectID when set.
func UploadFile(ctx context.Context, c *Client, path, projectID string) (backend.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return backend.File{}, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	form := map[string]string{}
	if projectID != "" {
		form["project_id"] = projectID
	}
	raw, err := c.Upload(ctx, filepath.Base(path), f, form)
	if err != nil {
		return backend.File{}, err
	}
	return decodeOptional[backend.File](backend.Files, raw)
}
