// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire encodes and decodes the message header ("overhead") shared by
// every transport.
//
// A header is variable length: the first byte holds Flags, and the flags
// alone decide whether the selector is 2 or 16 bytes wide and whether one or
// two 8-byte correlation keys follow the payload size. Callers therefore read
// the flags byte first and use HeaderLen to learn how many bytes to expect.
//
// All integers are little-endian. Reads go through Reader, which fails with
// ErrShortMessage instead of slicing out of bounds.
package wire
