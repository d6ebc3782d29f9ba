package csql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageAndCountShareFilter(t *testing.T) {
	db := &DB{Schema: "search"}
	q := Query{
		Where: "properties->'age' > ?::jsonb AND (properties->>'name' ILIKE ? OR properties->>'role' ILIKE ?)",
		Args:  []any{"18", "%a%", "%a%"},
		Skip:  10,
		Limit: 5,
	}

	page, pageArgs, err := db.PageSQL("user", q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT user_id, timestamp, properties FROM search."user" `+
		`WHERE (properties->'age' > $1::jsonb AND (properties->>'name' ILIKE $2 OR properties->>'role' ILIKE $3)) `+
		`ORDER BY timestamp DESC, user_id DESC LIMIT 5 OFFSET 10`, page)

	count, countArgs, err := db.CountSQL("user", q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM search."user" `+
		`WHERE (properties->'age' > $1::jsonb AND (properties->>'name' ILIKE $2 OR properties->>'role' ILIKE $3))`, count)

	assert.Equal(t, q.Args, pageArgs)
	assert.Equal(t, pageArgs, countArgs)
}

func TestPageSQLOrder(t *testing.T) {
	db := &DB{Schema: "search"}
	page, args, err := db.PageSQL("device", Query{OrderBy: "properties->'serial'", Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, `SELECT device_id, timestamp, properties FROM search."device" WHERE TRUE `+
		`ORDER BY properties->'serial' ASC, device_id ASC OFFSET 0`, page)
	assert.Empty(t, args)
}

func TestInvalidCollection(t *testing.T) {
	db := &DB{Schema: "search"}
	_, _, err := db.PageSQL(`user"; DROP TABLE x; --`, Query{})
	assert.Error(t, err)
	_, _, err = db.CountSQL("User", Query{})
	assert.Error(t, err)

	assert.True(t, ValidIdentifier("user_profile"))
	assert.False(t, ValidIdentifier("1user"))
}
