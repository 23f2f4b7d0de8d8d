// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLenProfiles(t *testing.T) {
	cases := []struct {
		flags Flags
		want  int
	}{
		{FlagNone, MinCompactHeaderLen},
		{FlagHighSpeed, MinCompactHeaderLen},
		{FlagRequest, MinCompactHeaderLen + 8},
		{FlagAcknowledgeResponse, MinCompactHeaderLen + 8},
		{FlagRequestResponseWithAcknowledgeRequest, MaxCompactHeaderLen},
		{FlagGuid, MinStableHeaderLen},
		{FlagGuid | FlagAcknowledgeRequest, MinStableHeaderLen + 8},
		{FlagGuid | FlagRequestResponseWithAcknowledgeRequest | FlagRunOriginalMethodOnRequest, MaxStableHeaderLen},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HeaderLen(tc.flags), tc.flags.String())
	}
	assert.Equal(t, 7, MinCompactHeaderLen)
	assert.Equal(t, 23, MaxCompactHeaderLen)
	assert.Equal(t, 21, MinStableHeaderLen)
	assert.Equal(t, 43, MaxStableHeaderLen)
}

func TestOverheadRoundTrip(t *testing.T) {
	guid := uuid.MustParse("6f1c2a4e-8d3b-4c55-9a0e-1f2b3c4d5e6f")
	cases := []Overhead{
		{Flags: FlagNone, Selector: Compact(7), PayloadSize: 0},
		{Flags: FlagRequest, Selector: Compact(math.MaxUint16), PayloadSize: 12, RequestKey: 42},
		{Flags: FlagAcknowledgeResponse, Selector: Compact(1), PayloadSize: 4, RequestKey: math.MinInt64},
		{Flags: FlagRequestResponseWithAcknowledgeRequest, Selector: Compact(9), PayloadSize: math.MaxInt32, RequestKey: 1, ResponseKey: math.MaxInt64},
		{Flags: FlagGuid, Selector: Stable(guid), PayloadSize: 3},
		{Flags: FlagGuid | FlagRequestResponseWithAcknowledgeRequest | FlagHighSpeed, Selector: Stable(guid), PayloadSize: 99, RequestKey: -5, ResponseKey: 77},
	}
	for _, in := range cases {
		b, err := in.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, b, in.Len())

		out, err := DecodeOverhead(b)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestAppendBinaryForcesGuidFlag(t *testing.T) {
	guid := uuid.New()
	b := Overhead{Flags: FlagRequest, Selector: Stable(guid), RequestKey: 3}.AppendBinary(nil)
	require.Len(t, b, MinStableHeaderLen+8)
	assert.True(t, Flags(b[0]).Has(FlagGuid))

	b = Overhead{Flags: FlagGuid | FlagRequest, Selector: Compact(4), RequestKey: 3}.AppendBinary(nil)
	require.Len(t, b, MinCompactHeaderLen+8)
	assert.False(t, Flags(b[0]).Has(FlagGuid))
}

func TestDecodeShortBuffers(t *testing.T) {
	guid := uuid.New()
	headers := []Overhead{
		{Flags: FlagNone, Selector: Compact(1)},
		{Flags: FlagRequest, Selector: Compact(1), RequestKey: 1},
		{Flags: FlagRequestResponseWithAcknowledgeRequest, Selector: Compact(1), RequestKey: 1, ResponseKey: 2},
		{Flags: FlagGuid, Selector: Stable(guid)},
		{Flags: FlagGuid | FlagRequestResponseWithAcknowledgeRequest, Selector: Stable(guid), RequestKey: 1, ResponseKey: 2},
	}
	for _, h := range headers {
		full := h.AppendBinary(nil)
		for n := 0; n < len(full); n++ {
			// Copy into an exact-size slice so any out-of-range access would panic.
			short := append([]byte(nil), full[:n]...)
			_, err := DecodeOverhead(short)
			assert.ErrorIs(t, err, ErrShortMessage, "flags=%s n=%d", h.Flags, n)
		}
	}
}

func TestDecodeNegativePayload(t *testing.T) {
	b := Overhead{Selector: Compact(2), PayloadSize: -1}.AppendBinary(nil)
	_, err := DecodeOverhead(b)
	assert.ErrorIs(t, err, ErrNegativePayload)
}

func TestSplitFrame(t *testing.T) {
	payload := []byte("hello")
	frame, err := Frame(Overhead{Flags: FlagRequest, Selector: Compact(5), RequestKey: 11}, payload)
	require.NoError(t, err)

	h, p, err := SplitFrame(append(frame, 0xEE))
	require.NoError(t, err)
	assert.Equal(t, int32(len(payload)), h.PayloadSize)
	assert.Equal(t, payload, p)

	_, _, err = SplitFrame(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrPayloadOverrun)
}

func TestPutRequestKey(t *testing.T) {
	for _, sel := range []Selector{Compact(3), Stable(uuid.New())} {
		frame, err := Frame(Overhead{Flags: FlagAcknowledgeRequest, Selector: sel, RequestKey: 1}, []byte{1, 2, 3})
		require.NoError(t, err)
		require.NoError(t, PutRequestKey(frame, 987654321))

		h, p, err := SplitFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, int64(987654321), h.RequestKey)
		assert.True(t, bytes.Equal([]byte{1, 2, 3}, p))
	}

	frame, err := Frame(Overhead{Selector: Compact(3)}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, PutRequestKey(frame, 1), ErrNoRequestKey)
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "None", FlagNone.String())
	assert.Equal(t, "Request|HighSpeed", (FlagRequest | FlagHighSpeed).String())
	assert.True(t, FlagRequestResponse.IsReply())
	assert.False(t, FlagAcknowledgeRequest.IsReply())
	assert.False(t, FlagNone.Has(FlagNone))
}
