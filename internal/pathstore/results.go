package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MaxDocIDLen bounds document ids used in keys.
const MaxDocIDLen = 128

// ErrInvalidDocID is returned for ids that would not map to a single key
// segment.
var ErrInvalidDocID = errors.New("invalid doc_id: want 1-128 of [A-Za-z0-9._-]")

// ValidDocID reports whether id is usable as one key path segment.
func ValidDocID(id string) bool {
	if id == "" || len(id) > MaxDocIDLen || id == "." || id == ".." {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// Result is the stored form of one patent's extracted alloy properties.
type Result struct {
	DocID       string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Pages       int       `json:"pages"`
	ContentHash string    `json:"content_hash"`
	AlloyInfo   string    `json:"alloy_info"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// ResultKey is where a document's properties live.
func ResultKey(docID string) string {
	return fmt.Sprintf("patents/%s/alloys", docID)
}

// HashKey indexes results by the SHA-256 of the extracted document text.
func HashKey(contentHash string) string {
	return fmt.Sprintf("patents/by_hash/%s", contentHash)
}

// PublishResult writes r under its document key and the content-hash index.
func (c *Client) PublishResult(ctx context.Context, r Result) error {
	if !ValidDocID(r.DocID) {
		return fmt.Errorf("%w: %q", ErrInvalidDocID, r.DocID)
	}
	source := "patentalloy:" + r.DocID
	if err := c.PutNode(ctx, ResultKey(r.DocID), NodeRequest{
		Value:      r,
		MemoryType: "semantic",
		Salience:   0.6,
		Source:     source,
	}); err != nil {
		return err
	}
	if r.ContentHash == "" {
		return nil
	}
	return c.PutNode(ctx, HashKey(r.ContentHash), NodeRequest{
		Value:      r,
		MemoryType: "metacognitive",
		Salience:   0.1,
		Source:     source,
	})
}

// LookupByHash returns a previously published result for identical text,
// or nil when none exists.
func (c *Client) LookupByHash(ctx context.Context, contentHash string) (*Result, error) {
	node, err := c.GetNode(ctx, HashKey(contentHash))
	if err != nil || node == nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(node.Value, &r); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", contentHash, err)
	}
	return &r, nil
}

// GetResult returns the published result for docID, or nil when none exists.
func (c *Client) GetResult(ctx context.Context, docID string) (*Result, error) {
	if !ValidDocID(docID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocID, docID)
	}
	node, err := c.GetNode(ctx, ResultKey(docID))
	if err != nil || node == nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(node.Value, &r); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", docID, err)
	}
	return &r, nil
}
