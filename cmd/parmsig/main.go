// Command parmsig is the CLI front end for the parm signature engine
// (spec §6 "Host integration"): run one or a directory of signature
// files against a disassembly-text listing and print the resulting
// match-result YAML.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/chananele/parm/internal/config"
	"github.com/chananele/parm/internal/hostenv"
	"github.com/chananele/parm/internal/plog"
	"github.com/chananele/parm/internal/sigfile"
	"github.com/chananele/parm/pkg/parm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s run <program.txt> <sig1.parmsig> [sig2.parmsig ...]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s version\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Println(config.Version)
	case "run":
		runCmd(os.Args[2:])
	case "-help", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(1)
	}
}

func runCmd(args []string) {
	verbose := false
	var rest []string
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			verbose = true
			continue
		}
		rest = append(rest, a)
	}
	plog.Init(verbose)

	if len(rest) < 2 {
		usage()
		os.Exit(1)
	}

	progPath := rest[0]
	sigPaths := rest[1:]

	progSrc, err := os.ReadFile(progPath)
	if err != nil {
		fatalf("reading %s: %v", progPath, err)
	}

	provider := hostenv.NewTextProvider()
	prog, err := provider.LoadProgram(string(progSrc))
	if err != nil {
		fatalf("parsing %s: %v", progPath, err)
	}
	plog.Debug("loaded program", "path", progPath, "size", humanize.Bytes(uint64(len(progSrc))))

	var sigs []*sigfile.Signature
	for _, path := range sigPaths {
		loaded, err := loadSignatures(path)
		if err != nil {
			fatalf("%v", err)
		}
		sigs = append(sigs, loaded...)
	}

	engine := parm.New()
	results, err := engine.Chain(prog, sigs)
	if err != nil {
		fatalf("running signatures: %v", err)
	}

	for i, res := range results {
		out, err := res.Marshal()
		if err != nil {
			fatalf("marshaling result for %s: %v", sigs[i].Name, err)
		}
		if isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Printf("# %s\n", sigs[i].Name)
		}
		fmt.Printf("---\n%s", out)
	}
}

// loadSignatures reads one signature-file document or directory of them
// (spec §6 "Signature-file format"), honoring the recognized extensions
// config.HasSignatureExt names.
func loadSignatures(path string) ([]*sigfile.Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return parseSignatureFile(path)
	}

	var out []*sigfile.Signature
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !config.HasSignatureExt(p) {
			return nil
		}
		sigs, err := parseSignatureFile(p)
		if err != nil {
			return err
		}
		out = append(out, sigs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseSignatureFile(path string) ([]*sigfile.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sigs, err := sigfile.ParseSignatures(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return sigs, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "parmsig: "+format+"\n", args...)
	os.Exit(1)
}
