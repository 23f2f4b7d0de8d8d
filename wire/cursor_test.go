// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	id := uuid.New()
	w := NewWriter(nil)
	w.Uint8(0xAB)
	w.Uint16(0xBEEF)
	w.Int32(-7)
	w.Int64(1 << 40)
	w.Float64(3.5)
	w.Bool(true)
	w.UUID(id)
	require.NoError(t, w.PutString("héllo"))
	require.NoError(t, w.PutBytes(nil))
	w.Raw([]byte{9, 9})

	r := NewReader(w.Bytes())
	u8, err := r.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)
	u16, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), u16)
	i32, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)
	i64, err := r.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)
	f, err := r.Float64()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
	b, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, b)
	gotID, err := r.UUID()
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
	empty, err := r.Bytes()
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, []byte{9, 9}, r.Rest())
	assert.Zero(t, r.Len())
}

func TestReaderOverrunLeavesCursor(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_, err := r.Uint32()
	assert.ErrorIs(t, err, ErrShortMessage)
	assert.Equal(t, 0, r.Offset())

	// Length prefix claims more bytes than remain.
	w := NewWriter(nil)
	w.Uint32(10)
	w.Raw([]byte{1, 2})
	r = NewReader(w.Bytes())
	_, err = r.Bytes()
	assert.ErrorIs(t, err, ErrShortMessage)
	assert.Equal(t, 0, r.Offset())
}
