// Package docstore is a small client for a Firebase-Realtime-Database style
// JSON store: one document per collection, records addressed by id, and the
// usual REST verbs per record.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/comigor/triage-go/internal/config"
	"github.com/comigor/triage-go/internal/logger"
)

// Collections known to the admin surface.
var Collections = []string{"appointments", "patients", "doctors", "departments"}

var (
	// ErrUnknownCollection is returned for collections outside Collections.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrStatus is returned when the store answers with a non-success status.
	ErrStatus = errors.New("unexpected status from document store")
	// ErrEmptyID is returned when a record operation has no id. An empty id
	// would address the whole collection.
	ErrEmptyID = errors.New("record id is empty")
	// ErrNotConfigured is returned when no base URL is set.
	ErrNotConfigured = errors.New("document store base_url is not configured")
)

// Record is one stored document.
type Record map[string]any

// Client is a client for the document store REST API.
type Client struct {
	cfg    config.StoreConfig
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	lastMilli int64
}

// NewClient creates a new Client.
func NewClient(cfg config.StoreConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// List reads a whole collection. An empty collection yields an empty map.
func (c *Client) List(ctx context.Context, collection string) (map[string]Record, error) {
	out := map[string]Record{}
	if err := c.do(ctx, http.MethodGet, collection, "", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]Record{}
	}
	return out, nil
}

// Patch merges fields into an existing record.
func (c *Client) Patch(ctx context.Context, collection, id string, fields Record) error {
	id, err := recordID(collection, id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, collection, id, fields, nil)
}

// Put creates or overwrites a record.
func (c *Client) Put(ctx context.Context, collection, id string, rec Record) error {
	id, err := recordID(collection, id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, collection, id, rec, nil)
}

// Delete removes a record. Deleting a missing record is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	id, err := recordID(collection, id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, collection, id, nil, nil)
}

// Create stores rec under a freshly generated id and returns the id.
func (c *Client) Create(ctx context.Context, collection string, rec Record) (string, error) {
	id := NewID(collection, c.nextStamp())
	if err := c.Put(ctx, collection, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

// nextStamp is now, bumped by a millisecond when needed so ids created in a
// burst stay distinct.
func (c *Client) nextStamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.lastMilli {
		ms = c.lastMilli + 1
	}
	c.lastMilli = ms
	return time.UnixMilli(ms)
}

// NewID derives a record id from the collection name and a timestamp,
// e.g. "AP1704880800000" for appointments.
func NewID(collection string, at time.Time) string {
	prefix := collection
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return strings.ToUpper(prefix) + fmt.Sprint(at.UnixMilli())
}

// ValidateCollection rejects collections the admin surface doesn't manage.
func ValidateCollection(collection string) error {
	if !slices.Contains(Collections, collection) {
		return oops.In("docstore").With("collection", collection).Wrapf(ErrUnknownCollection, "collection %q", collection)
	}
	return nil
}

func recordID(collection, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", oops.In("docstore").With("collection", collection).Wrapf(ErrEmptyID, "record in %q", collection)
	}
	return id, nil
}

func (c *Client) endpoint(collection, id string) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", ErrNotConfigured
	}
	path := url.PathEscape(collection)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path + ".json"
	if c.cfg.AuthToken != "" {
		u += "?auth=" + url.QueryEscape(c.cfg.AuthToken)
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, collection, id string, body any, out any) error {
	errb := oops.In("docstore").With("method", method, "collection", collection, "id", id)

	if err := ValidateCollection(collection); err != nil {
		return err
	}
	u, err := c.endpoint(collection, id)
	if err != nil {
		return errb.Wrap(err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errb.Wrapf(err, "failed to encode record")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errb.Wrapf(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errb.Wrapf(err, "document store request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errb.With("status", resp.StatusCode).Wrapf(ErrStatus, "unexpected status code: %d", resp.StatusCode)
	}
	logger.L.Debug("document store request", "method", method, "collection", collection, "id", id, "status", resp.StatusCode)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return errb.Wrapf(err, "failed to decode response")
	}
	return nil
}
