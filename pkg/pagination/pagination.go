package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// ErrScopeMismatch means a cursor minted for one listing was replayed
// against a different filter.
var ErrScopeMismatch = errors.New("cursor belongs to a different listing")

// Params holds cursor pagination inputs. Scope identifies the filtered
// listing the cursor walks; it is sealed into every cursor handed out.
type Params struct {
	Limit  int
	Cursor string
	Scope  string
}

// Cursor is the last (created_at, id) keyset position of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
	Scope     string
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds a URL-safe cursor that can travel in a query string.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s|%s", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String(), cursor.Scope)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes value and checks it was minted for scope. An empty
// value is the first page and yields a nil cursor.
func ParseCursor(value, scope string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	if parts[2] != scope {
		return nil, ErrScopeMismatch
	}
	return &Cursor{
		CreatedAt: t,
		ID:        id,
		Scope:     parts[2],
	}, nil
}
