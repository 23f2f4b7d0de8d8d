// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command duorpcd runs a duorpc node in the server or client role.
package main

import "os"

func main() {
	os.Exit(run(ParseFlags(os.Args[1:])))
}
