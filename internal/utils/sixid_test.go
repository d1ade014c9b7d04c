package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSixID_StringRoundTrip(t *testing.T) {
	id := SixID{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB}
	s := id.String()
	assert.Len(t, s, 10)

	parsed, err := ParseSixID(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	lower, err := ParseSixID(toLowerAliases(s))
	require.NoError(t, err)
	assert.Equal(t, id, lower)
}

func toLowerAliases(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}

func TestParseSixID_Invalid(t *testing.T) {
	_, err := ParseSixID("short")
	assert.Error(t, err)

	_, err = ParseSixID("UUUUUUUUUU") // 'U' is excluded from Crockford
	assert.Error(t, err)
}

func TestSixID_JSON(t *testing.T) {
	id := NewSixID()
	data, err := json.Marshal(struct {
		ID SixID `json:"id"`
	}{ID: id})
	require.NoError(t, err)

	var decoded struct {
		ID SixID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded.ID)
}

func TestSixID_BSON(t *testing.T) {
	type doc struct {
		ID SixID `bson:"_id"`
	}
	id := NewSixID()
	data, err := bson.Marshal(doc{ID: id})
	require.NoError(t, err)

	var raw bson.Raw = data
	val := raw.Lookup("_id")
	subtype, bin := val.Binary()
	assert.Equal(t, byte(0x80), subtype)
	assert.Equal(t, id[:], bin)

	var decoded doc
	require.NoError(t, bson.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded.ID)
}

func TestNewSixIDHook(t *testing.T) {
	fixed := SixID{1, 2, 3, 4, 5, 6}
	NewSixIDHook = func() (SixID, bool) { return fixed, true }
	defer func() { NewSixIDHook = nil }()

	assert.Equal(t, fixed, NewSixID())
	assert.False(t, fixed.IsZero())
	assert.True(t, SixID{}.IsZero())
}
