package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_LargeNumberKeepsDigits(t *testing.T) {
	var msg UpdateMessage
	body := `{"user":{"id":"u1","email":"a@b.com","external_id":1234567890123456789,"score":12.50},"segments":[{"id":"S1","name":"Leads"}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &msg))

	id := msg.User.Attrs().Get("external_id")
	assert.Equal(t, KindNumber, id.Kind())
	assert.Equal(t, "1234567890123456789", id.String())

	out, err := json.Marshal(msg.User.Attrs())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"external_id":1234567890123456789`)
	assert.Contains(t, string(out), `"score":12.50`)
}

func TestValue_NumberEquality(t *testing.T) {
	a, err := NumberText("1234567890123456789")
	require.NoError(t, err)
	b, err := NumberText("1234567890123456788")
	require.NoError(t, err)
	c, err := NumberText("1.5e1")
	require.NoError(t, err)

	assert.False(t, a.Equal(b), "neighbours that collapse to one float64 must differ")
	assert.True(t, a.Equal(a))
	assert.True(t, c.Equal(Number(15)))
	assert.Equal(t, "15", Number(15).String())

	_, err = NumberText("12abc")
	assert.Error(t, err)
}

func TestValue_NullAndNesting(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"b":[1,"x",null],"a":true}`), &v))

	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.True(t, obj.Get("missing").IsNull())
	assert.Equal(t, `{"a":true,"b":[1,"x",null]}`, v.String())
}
