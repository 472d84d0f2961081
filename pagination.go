package dynacodec

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided start key. Implementors
	// should return an empty token if the start key is nil or empty.
	PageCursor(ctx context.Context, lastkey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor. Implementors
	// should return a nil item if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// ErrInvalidCursor is returned when a client cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid page cursor")

// CursorPaginator implements Paginator without storage: the cursor is the
// URL-safe base64 encoding of the wire JSON of the key.
type CursorPaginator struct{}

// PageCursor implements Paginator.
func (CursorPaginator) PageCursor(_ context.Context, lastkey Item) (string, error) {
	return EncodeCursor(lastkey)
}

// StartKey implements Paginator.
func (CursorPaginator) StartKey(_ context.Context, cursor string) (Item, error) {
	return DecodeCursor(cursor)
}

// EncodeCursor encodes lastkey as an opaque cursor. An empty key yields an
// empty cursor.
func EncodeCursor(lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}
	data, err := EncodeItemJSON(lastkey)
	if err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor decodes a cursor produced by [EncodeCursor].
func DecodeCursor(cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	key, err := DecodeItemJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	return key, nil
}

// TablePaginator implements Paginator by storing start keys in a table. Clients
// only ever see a random cursor id.
type TablePaginator struct {
	table  *Table         // table configuration
	client DynamoDBClient // dynamodb client
}

// PageCursor is the item that stores a last evaluated key. Key holds the wire JSON
// of the key; a non-zero Expires drives the table TTL.
type PageCursor struct {
	Cursor  string    `ddb:"pk,pk"`
	Kind    string    `ddb:"sk,sk"`
	Key     []byte    `ddb:"key"`
	Expires time.Time `ddb:"expires,unixtime,omitempty"`
}

const pageCursorKind = "page"

// Paginator returns a Paginator that stores cursors in the table.
func (t *Table) Paginator(client DynamoDBClient) Paginator {
	return &TablePaginator{
		table:  t,
		client: client,
	}
}

// PageCursor implements Paginator by storing the last evaluated key in the table.
// If lastkey is empty, an empty string is returned.
func (t *TablePaginator) PageCursor(ctx context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	now := t.table.now()
	cursor, err := generateCursor(now)
	if err != nil {
		return "", fmt.Errorf("failed to generate cursor: %w", err)
	}
	keyData, err := EncodeItemJSON(lastkey)
	if err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}

	pageCursor := &PageCursor{
		Cursor: cursor,
		Kind:   pageCursorKind,
		Key:    keyData,
	}
	if t.table.PaginationTTL > 0 {
		pageCursor.Expires = now.Add(t.table.PaginationTTL)
	}
	if err := t.table.Put(ctx, t.client, pageCursor); err != nil {
		return "", fmt.Errorf("failed to store page cursor: %w", err)
	}
	return cursor, nil
}

// StartKey implements Paginator by retrieving the stored cursor. A cursor that is
// not found or has expired yields a nil key.
func (t *TablePaginator) StartKey(ctx context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	pageCursor := &PageCursor{Cursor: cursor, Kind: pageCursorKind}
	err := t.table.Get(ctx, t.client, pageCursor)
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page cursor: %w", err)
	}
	if len(pageCursor.Key) == 0 || (!pageCursor.Expires.IsZero() && t.table.now().After(pageCursor.Expires)) {
		return nil, nil
	}

	key, err := DecodeItemJSON(pageCursor.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode last key: %w", err)
	}
	return key, nil
}

// MarshalStartKey marshals a page key into a page cursor to return to clients.
func MarshalStartKey(ctx context.Context, p Paginator, lastkey Item) (string, error) {
	return p.PageCursor(ctx, lastkey)
}

// UnmarshalStartKey unmarshals a page key from the provided cursor.
func UnmarshalStartKey(ctx context.Context, p Paginator, cursor string) (Item, error) {
	return p.StartKey(ctx, cursor)
}

// generateCursor creates a unique cursor string from now and random bytes.
func generateCursor(now time.Time) (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	combined := fmt.Sprintf("%d_%s", now.UnixNano(), base64.RawURLEncoding.EncodeToString(randomBytes))
	return base64.RawURLEncoding.EncodeToString([]byte(combined)), nil
}
