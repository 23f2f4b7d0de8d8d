// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/luxfi/duorpc/wire"
)

type point struct {
	X, Y  int32
	Label string
}

func roundTrip[A Args](t *testing.T, codec Codec, in A) A {
	t.Helper()
	enc := newEncoder(codec, nil)
	require.NoError(t, in.MarshalArgs(enc))
	var zero A
	out, err := zero.UnmarshalArgs(newDecoder(codec, enc.Bytes()))
	require.NoError(t, err)
	return out.(A)
}

func TestArgsRoundTripEveryArity(t *testing.T) {
	id := uuid.New()
	for _, codec := range []Codec{CBORCodec{}, JSONCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			a0 := Pack0()
			assert.Equal(t, a0, roundTrip(t, codec, a0))

			a1 := Pack1(int32(math.MinInt32))
			assert.Equal(t, a1, roundTrip(t, codec, a1))

			a2 := Pack2(uint32(math.MaxUint32), "")
			assert.Equal(t, a2, roundTrip(t, codec, a2))

			a3 := Pack3(true, -0.25, []byte{})
			assert.Equal(t, a3, roundTrip(t, codec, a3))

			a4 := Pack4("héllo", int64(math.MaxInt64), int64(math.MinInt64), uint8(255))
			assert.Equal(t, a4, roundTrip(t, codec, a4))

			a5 := Pack5(point{X: -1, Y: 1, Label: "p"}, []string{"a", ""}, map[string]int{"k": 1}, int16(-32768), uint16(65535))
			assert.Equal(t, a5, roundTrip(t, codec, a5))

			a6 := Pack6(1, 2, 3, 4, 5, 6)
			assert.Equal(t, a6, roundTrip(t, codec, a6))

			a7 := Pack7(id, "a", "b", "c", []byte{0}, false, float32(1.5))
			assert.Equal(t, a7, roundTrip(t, codec, a7))

			a8 := Pack8(int8(-128), int8(127), "", "", []int{0}, []int{1}, uint64(0), 0.0)
			assert.Equal(t, a8, roundTrip(t, codec, a8))

			a9 := Pack9(1, "2", 3.0, true, []byte("5"), point{}, int64(7), uint32(8), "nine")
			assert.Equal(t, a9, roundTrip(t, codec, a9))

			a10 := Pack10(int8(-1), uint16(2), int32(-3), uint64(math.MaxUint64), float32(-1.5), "", []byte{1, 2, 3}, point{Label: "ten"}, []string{"x"}, map[string]int{"a": 1})
			assert.Equal(t, a10, roundTrip(t, codec, a10))
		})
	}
}

func TestEmptyBytesDecodeNonNil(t *testing.T) {
	out := roundTrip(t, CBORCodec{}, Pack1[[]byte](nil))
	assert.NotNil(t, out.V1)
	assert.Empty(t, out.V1)
}

func TestProtoArgument(t *testing.T) {
	in := Pack2(wrapperspb.String("proto value"), "tail")
	out := roundTrip(t, CBORCodec{}, in)
	assert.True(t, proto.Equal(in.V1, out.V1), "got %v", out.V1)
	assert.Equal(t, "tail", out.V2)

	empty := roundTrip(t, CBORCodec{}, Pack1(&wrapperspb.StringValue{}))
	require.NotNil(t, empty.V1)
	assert.Equal(t, "", empty.V1.GetValue())
}

func TestPayloadLayout(t *testing.T) {
	enc := newEncoder(CBORCodec{}, nil)
	require.NoError(t, Pack2([]byte{1, 2}, "x").MarshalArgs(enc))
	assert.Equal(t, []byte{
		2, 0, 0, 0, 1, 2,      // raw bytes
		2, 0, 0, 0, 0x61, 'x', // CBOR text string
	}, enc.Bytes())
}

func TestTruncatedPayload(t *testing.T) {
	enc := newEncoder(CBORCodec{}, nil)
	require.NoError(t, Pack2("a", int64(5)).MarshalArgs(enc))
	b := enc.Bytes()

	_, err := Args2[string, int64]{}.UnmarshalArgs(newDecoder(CBORCodec{}, b[:len(b)-1]))
	assert.ErrorIs(t, err, wire.ErrShortMessage)
}

func TestRawArgs(t *testing.T) {
	raw, err := BuildRaw(func(w *wire.Writer) error {
		w.Uint16(0xCAFE)
		return w.PutString("tail")
	})
	require.NoError(t, err)

	out := roundTrip(t, CBORCodec{}, raw)
	assert.Equal(t, raw.Payload, out.Payload)

	r := out.Reader()
	v, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xCAFE), v)
	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "tail", s)
	assert.Nil(t, Raw{}.ArgTypes())
}

func TestArgTypes(t *testing.T) {
	got := Args3[int, string, []byte]{}.ArgTypes()
	assert.Equal(t, []reflect.Type{
		reflect.TypeOf(0),
		reflect.TypeOf(""),
		reflect.TypeOf([]byte(nil)),
	}, got)
	assert.Nil(t, Args0{}.ArgTypes())
}

func TestInvokerEncodeDecodeErrors(t *testing.T) {
	d := newTestDispatcher(t, RoleClient)
	conn := newRecordConn()

	bad := Define[Args1[chan int]](d, "bad", wire.Compact(1))
	_, err := bad.Encode(wire.Overhead{}, Pack1(make(chan int)))
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, bad.Send(conn, Pack1(make(chan int))), ErrWriteFailed)
	assert.Empty(t, conn.sent())

	num := Define[Args1[int64]](d, "num", wire.Compact(2))
	_, err = num.Decode([]byte{1})
	assert.ErrorIs(t, err, ErrReadFailed)

	frame, err := num.Encode(wire.Overhead{Flags: wire.FlagRequest, RequestKey: 9}, Pack1(int64(-3)))
	require.NoError(t, err)
	h, payload, err := wire.SplitFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, wire.Compact(2), h.Selector)
	assert.Equal(t, int64(9), h.RequestKey)
	got, err := num.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), got.V1)
}
