package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 123, time.FixedZone("x", 3600)), ID: uuid.New(), Scope: "status=pending"}
	out, err := ParseCursor(EncodeCursor(in), "status=pending")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, "status=pending", out.Scope)
}

func TestParseCursorRejectsOtherScope(t *testing.T) {
	raw := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New(), Scope: "user=" + uuid.NewString()})

	_, err := ParseCursor(raw, "user="+uuid.NewString())
	assert.ErrorIs(t, err, ErrScopeMismatch)

	_, err = ParseCursor(raw, "")
	assert.ErrorIs(t, err, ErrScopeMismatch)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	c, err := ParseCursor("  ", "")
	assert.NoError(t, err)
	assert.Nil(t, c)

	for _, raw := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("no-separator")),
		base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano) + "|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("yesterday|" + uuid.NewString() + "|")),
		base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano) + "|nope|")),
	} {
		_, err := ParseCursor(raw, "")
		assert.Error(t, err, raw)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}
