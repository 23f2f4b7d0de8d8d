// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command duorpc-genargs writes args_gen.go: the Args1..ArgsN tuple types
// used by typed invokers. Run it through `go generate` from the module root.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"log"
	"os"
	"strings"
	"text/template"
)

const header = `// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Code generated by duorpc-genargs. DO NOT EDIT.

package duorpc

import "reflect"
`

var tuple = template.Must(template.New("tuple").Parse(`
// Args{{.N}} carries {{.N}} typed argument{{if gt .N 1}}s{{end}}.
type Args{{.N}}[{{.Params}} any] struct {
{{- range .Idx}}
	V{{.}} T{{.}}
{{- end}}
}

// Pack{{.N}} builds an Args{{.N}}.
func Pack{{.N}}[{{.Params}} any]({{.Formals}}) Args{{.N}}[{{.Params}}] {
	return Args{{.N}}[{{.Params}}]{ {{- .Fields -}} }
}

func (a Args{{.N}}[{{.Params}}]) MarshalArgs(enc *Encoder) error {
{{- range .Idx}}
	if err := encodeArg(enc, a.V{{.}}); err != nil {
		return err
	}
{{- end}}
	return nil
}

func (Args{{.N}}[{{.Params}}]) UnmarshalArgs(dec *Decoder) (Args, error) {
	var a Args{{.N}}[{{.Params}}]
{{- range .Idx}}
	if err := decodeArg(dec, &a.V{{.}}); err != nil {
		return nil, err
	}
{{- end}}
	return a, nil
}

func (Args{{.N}}[{{.Params}}]) ArgTypes() []reflect.Type {
	return []reflect.Type{ {{- .Types -}} }
}
`))

type arity struct {
	N       int
	Idx     []int
	Params  string
	Formals string
	Fields  string
	Types   string
}

func newArity(n int) arity {
	a := arity{N: n}
	var params, formals, fields, types []string
	for i := 1; i <= n; i++ {
		a.Idx = append(a.Idx, i)
		params = append(params, fmt.Sprintf("T%d", i))
		formals = append(formals, fmt.Sprintf("v%d T%d", i, i))
		fields = append(fields, fmt.Sprintf("V%d: v%d", i, i))
		types = append(types, fmt.Sprintf("typeOf[T%d]()", i))
	}
	a.Params = strings.Join(params, ", ")
	a.Formals = strings.Join(formals, ", ")
	a.Fields = strings.Join(fields, ", ")
	a.Types = strings.Join(types, ", ")
	return a
}

func main() {
	out := flag.String("out", "args_gen.go", "output file")
	maxN := flag.Int("max", 10, "largest arity to generate")
	flag.Parse()

	var buf bytes.Buffer
	buf.WriteString(header)
	for n := 1; n <= *maxN; n++ {
		if err := tuple.Execute(&buf, newArity(n)); err != nil {
			log.Fatalf("render arity %d: %v", n, err)
		}
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		log.Fatalf("format: %v", err)
	}
	if err := os.WriteFile(*out, src, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("wrote %s (%d arities)\n", *out, *maxN)
}
