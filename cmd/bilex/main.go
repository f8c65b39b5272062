package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/agenthands/bilex/internal/config"
	"github.com/agenthands/bilex/internal/diag"
	"github.com/agenthands/bilex/pkg/bytecodefmt"
	"github.com/agenthands/bilex/pkg/compiler"
	"github.com/agenthands/bilex/pkg/disasm"
	"github.com/agenthands/bilex/pkg/lexer"
	"github.com/agenthands/bilex/pkg/parser"
	"github.com/agenthands/bilex/pkg/stdlib"
	"github.com/agenthands/bilex/pkg/vm"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "build":
		buildCommand(os.Args[2:])
	case "disasm":
		disasmCommand(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: bilex <run|build|disasm> [flags] <file>")
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "enable structured diagnostic logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: bilex run [-verbose] <source.bl>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}

	if *verbose || cfg.Run.Verbose {
		diag.Setup(1)
	}
	log := diag.Logger("cli")
	if cfg.Project.Name != "" {
		log.Debugf("loaded project config for %s", cfg.Project.Name)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	warnMixedKeywords(log, cfg, string(src))

	mod, err := compileSource(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	out, closeOut, err := cfg.Output.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer closeOut()

	m := vm.NewMachine(mod, stdlib.Builtins(), out)
	m.SetMaxCallDepth(cfg.Limits.MaxCallDepth)
	if _, err := m.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// warnMixedKeywords logs (via commonlog, not the compile/run error contract)
// when src's keyword spellings mix English and Russian forms, per
// cfg.Diagnostics.WarnMixedKeywords.
func warnMixedKeywords(log commonlog.Logger, cfg *config.Config, src string) {
	if !cfg.Diagnostics.WarnMixedKeywords {
		return
	}
	if mixed, langs := lexer.MixedKeywordLanguages(src); mixed {
		log.Warningf("source mixes keyword spellings from multiple languages: %v", langs)
	}
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "", "output .uabc path (defaults to <source>.uabc)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: bilex build [-o out.uabc] <source.bl>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	mod, err := compileSource(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	data, err := bytecodefmt.Serialize(mod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serialize error: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = path + ".uabc"
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", outPath)
}

func disasmCommand(args []string) {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: bilex disasm <file.bl|file.uabc>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	var mod *bytecodefmt.Module
	if mod, err = bytecodefmt.Deserialize(data); err != nil {
		mod, err = compileSource(string(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	disasm.Module(os.Stdout, mod)
}

func compileSource(src string) (*bytecodefmt.Module, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	mod, err := compiler.Compile(prog)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	return mod, nil
}
