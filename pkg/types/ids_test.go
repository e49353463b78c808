package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNodeID_String 测试 Base58 往返
func TestNodeID_String(t *testing.T) {
	id := RandomNodeID()

	s := id.String()
	require.NotEmpty(t, s)

	parsed, err := ParseNodeID(s)
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))
}

// TestNodeID_Empty 测试空 ID 行为
func TestNodeID_Empty(t *testing.T) {
	var id NodeID
	assert.True(t, id.IsEmpty())
	assert.Equal(t, "", id.String())
	assert.Equal(t, "", id.ShortString())

	assert.False(t, RandomNodeID().IsEmpty())
}

// TestNodeID_ShortString 测试日志用短表示
func TestNodeID_ShortString(t *testing.T) {
	id := RandomNodeID()
	short := id.ShortString()
	assert.Len(t, short, 8)
	assert.Equal(t, id.String()[:8], short)
}

// TestParseNodeID 测试解析失败路径
func TestParseNodeID(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		_, err := ParseNodeID("")
		assert.ErrorIs(t, err, ErrInvalidNodeID)
	})

	t.Run("not base58", func(t *testing.T) {
		_, err := ParseNodeID("0OIl+/")
		assert.ErrorIs(t, err, ErrInvalidNodeID)
	})

	t.Run("wrong length", func(t *testing.T) {
		short := Base58Encode([]byte("too short"))
		_, err := ParseNodeID(short)
		assert.ErrorIs(t, err, ErrInvalidNodeID)
	})
}

// TestNodeIDFromBytes 测试字节构造
func TestNodeIDFromBytes(t *testing.T) {
	id := RandomNodeID()

	got, err := NodeIDFromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = NodeIDFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

// TestNodeIDFromString 测试确定性派生
func TestNodeIDFromString(t *testing.T) {
	a := NodeIDFromString("node-a")
	b := NodeIDFromString("node-a")
	c := NodeIDFromString("node-b")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
