// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command duorpcctl queries the admin API of a running duorpcd.
//
//	duorpcctl -endpoint http://127.0.0.1:7302 stats
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/duorpc/admin"
)

func main() {
	endpoint := flag.String("endpoint", "http://127.0.0.1:7302", "admin endpoint of the node")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "log request attempts")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: duorpcctl [flags] procedures|pending|stats|sessions\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	client, err := admin.NewClient(*endpoint, log)
	if err != nil {
		fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var out any
	switch cmd := flag.Arg(0); cmd {
	case "procedures":
		out, err = client.Procedures(ctx)
	case "pending":
		out, err = client.Pending(ctx)
	case "stats":
		out, err = client.Stats(ctx)
	case "sessions":
		out, err = client.Sessions(ctx)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatalf("%s: %v", flag.Arg(0), err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatalf("encode: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "duorpcctl: "+format+"\n", args...)
	os.Exit(1)
}
