// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command einloop compiles a statement in index notation and prints its
// loop plan, generated Go code, or result.
//
// Usage:
//
//	einloop [flags] statement [directive...]
//
// Examples:
//
//	einloop 'A[i] := B[i,j]*C[k] (+, j, k)'
//	einloop -go -func RowSums 'A[i] := B[i,j]'
//	einloop -run -v 'B=[[1, 2], [3, 4]]' -v 'C=[1, 1]' 'A[i] := B[i,j]*C[k]'
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/einloop"
	"github.com/gx-org/einloop/api/options"
	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/golang/emitter"
)

type valueFlags []string

func (v *valueFlags) String() string {
	return strings.Join(*v, " ")
}

func (v *valueFlags) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("%q: want name=value", s)
	}
	*v = append(*v, s)
	return nil
}

var (
	showPlan = flag.Bool("plan", false, "print the loop plan (default)")
	showGo   = flag.Bool("go", false, "print the Go source of the statement")
	run      = flag.Bool("run", false, "run the statement on the values given with -v")
	funcName = flag.String("func", "Kernel", "name of the generated Go function")
	pkgName  = flag.String("pkg", "kernels", "package of the generated Go file")
	elemType = flag.String("elem", "float64", "element type of the arrays")
	parallel = flag.Bool("parallel", false, "run the outermost output loop on several goroutines")
	workers  = flag.Int("workers", 0, "number of goroutines used by -parallel")
	trace    = flag.Bool("trace", false, "print the steps of an execution")
	vals     valueFlags
)

var elemTypes = map[string]dtype.DataType{
	"float64": dtype.Float64,
	"float32": dtype.Float32,
	"int64":   dtype.Int64,
	"int32":   dtype.Int32,
}

func exit(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

func main() {
	flag.Var(&vals, "v", "name=value binding for -run, e.g. B=[[1, 2], [3, 4]]; can be repeated")
	flag.Parse()
	if flag.NArg() == 0 {
		exit("usage: einloop [flags] statement [directive...]")
	}
	prog, err := einloop.Compile(flag.Arg(0), flag.Args()[1:]...)
	if err != nil {
		exit("%v", err)
	}
	dt, ok := elemTypes[*elemType]
	if !ok {
		exit("element type %q not supported", *elemType)
	}
	if *showPlan || (!*showGo && !*run) {
		fmt.Print(prog.PlanString())
	}
	if *showGo {
		if err := prog.EmitGo(os.Stdout, emitter.Options{
			Package: *pkgName,
			Func:    *funcName,
			Elem:    *elemType,
		}); err != nil {
			exit("%+v", err)
		}
	}
	if *run {
		if err := runProgram(prog, dt); err != nil {
			exit("%v", err)
		}
	}
}

func runProgram(prog *einloop.Program, dt dtype.DataType) error {
	env := values.Env{}
	for _, v := range vals {
		name, src, _ := strings.Cut(v, "=")
		val, err := values.ParseLiteral(src, dt)
		if err != nil {
			return fmt.Errorf("%s: %v", name, err)
		}
		env[strings.TrimSpace(name)] = val
	}
	var opts []options.Option
	if *parallel {
		opts = append(opts, options.Parallel(*workers))
	}
	if *trace {
		opts = append(opts, options.Trace(func(format string, a ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", a...)
		}))
	}
	out, err := prog.Run(env, opts...)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
