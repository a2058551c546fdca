// Command wavesel selects instructions for built-in sample shaders and
// prints the resulting programs.
//
// Usage:
//
//	wavesel [options] [shader...]
//
// Examples:
//
//	wavesel                          # Select every sample for gfx9 wave64
//	wavesel -chip gfx10 -wave 32 loop
//	wavesel -list                    # List the samples
//
// The environment variables WAVESEL_CHIP, WAVESEL_WAVE, WAVESEL_SHADER and
// WAVESEL_VALIDATE provide defaults for the matching flags.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/gogpu/wavesel"
	"github.com/gogpu/wavesel/isa"
	"github.com/gogpu/wavesel/isel"
)

var (
	chip     = flag.String("chip", env.Str("WAVESEL_CHIP", "gfx9"), "target chip: gfx6, gfx7, gfx8, gfx9, gfx10 or gfx10.3")
	wave     = flag.Int("wave", env.Int("WAVESEL_WAVE", 64), "wave size: 32 or 64")
	shader   = flag.String("shader", env.Str("WAVESEL_SHADER", ""), "comma separated samples to select (default: all)")
	validate = flag.Bool("validate", !env.Has("WAVESEL_VALIDATE") || env.Bool("WAVESEL_VALIDATE"), "validate IR before selection")
	list     = flag.Bool("list", false, "list the sample shaders")
	version  = flag.Bool("version", false, "print version")
)

const waveselVersion = "0.1.0-dev"

var chips = map[string]isa.ChipClass{
	"gfx6":    isa.GFX6,
	"gfx7":    isa.GFX7,
	"gfx8":    isa.GFX8,
	"gfx9":    isa.GFX9,
	"gfx10":   isa.GFX10,
	"gfx10.3": isa.GFX103,
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("wavesel version %s\n", waveselVersion)
		return
	}
	if *list {
		for _, s := range samples {
			fmt.Printf("%-16s %s\n", s.name, s.desc)
		}
		return
	}

	class, ok := chips[strings.ToLower(*chip)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown chip %q\n", *chip)
		os.Exit(1)
	}
	if *wave != 32 && *wave != 64 {
		fmt.Fprintf(os.Stderr, "Error: wave size must be 32 or 64, got %d\n", *wave)
		os.Exit(1)
	}

	names := flag.Args()
	if len(names) == 0 && *shader != "" {
		names = strings.Split(*shader, ",")
	}
	selected, err := pick(names)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := wavesel.DefaultOptions()
	opts.Validate = *validate
	opts.Select.Target = isel.TargetFor(class, uint32(*wave))
	opts.Select.Diagnostics = os.Stderr
	opts.Select.InlinePushConstants = isel.InlinePushConstants{Count: 2}

	failed := false
	for _, s := range selected {
		prog, err := wavesel.Compile(s.build(), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Compilation error in %s: %v\n", s.name, err)
			failed = true
			continue
		}
		fmt.Printf("; shader %s\n", s.name)
		if err := isa.Print(os.Stdout, prog); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
	}
	if failed {
		os.Exit(1)
	}
}

// pick returns the samples named by names, or all of them.
func pick(names []string) ([]sample, error) {
	if len(names) == 0 {
		return samples, nil
	}
	var out []sample
	for _, n := range names {
		n = strings.TrimSpace(n)
		found := false
		for _, s := range samples {
			if s.name == n {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown shader %q (see -list)", n)
		}
	}
	return out, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: wavesel [options] [shader...]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  wavesel                           Select all samples\n")
	fmt.Fprintf(os.Stderr, "  wavesel -chip gfx10 -wave 32 loop Select one sample for gfx10 wave32\n")
	fmt.Fprintf(os.Stderr, "  WAVESEL_CHIP=gfx8 wavesel reduce  Pick the chip from the environment\n")
}
