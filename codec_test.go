// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"cbor", "json", "binary"} {
		c, ok := CodecByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}
	c, ok := CodecByName("")
	require.True(t, ok)
	assert.Equal(t, "cbor", c.Name())

	_, ok = CodecByName("xml")
	assert.False(t, ok)
}

func TestCBORIsCanonical(t *testing.T) {
	m := map[string]int{"zeta": 1, "alpha": 2, "mid": 3, "b": 4, "aa": 5}
	first, err := CBORCodec{}.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := CBORCodec{}.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}

	var out map[string]int
	require.NoError(t, CBORCodec{}.Decode(first, &out))
	assert.Equal(t, m, out)
}

func TestJSONCodec(t *testing.T) {
	type sample struct {
		A int
		B string
	}
	b, err := JSONCodec{}.Encode(sample{A: 1, B: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":1,"B":"x"}`, string(b))

	var out sample
	require.NoError(t, JSONCodec{}.Decode(b, &out))
	assert.Equal(t, sample{A: 1, B: "x"}, out)
}

func TestBinaryCodecPassesBytesThrough(t *testing.T) {
	raw := []byte{0, 1, 2, 0xFF}
	b, err := BinaryCodec{}.Encode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, b)

	var out []byte
	require.NoError(t, BinaryCodec{}.Decode(b, &out))
	assert.Equal(t, raw, out)

	b, err = BinaryCodec{}.Encode(42)
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))
}
