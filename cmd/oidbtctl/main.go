// Command oidbtctl offline-compiles a single OI region and reports what
// the pipeline would install in the code cache, without needing a live
// guest interpreter attached (SPEC_FULL.md §4.J). It reads a region file
// of "guest_pc raw_word" lines, one instruction per line, both in
// hexadecimal.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/OpenISA/oi-dbt/internal/dbt/frontend"
	"github.com/OpenISA/oi-dbt/internal/dbt/logging"
	"github.com/OpenISA/oi-dbt/internal/dbt/optimizer"
	"github.com/OpenISA/oi-dbt/internal/dbt/ssa"
	"github.com/OpenISA/oi-dbt/oi"
)

func main() {
	regionPath := flag.String("region", "", "path to a region file (guest_pc raw_word per line, hex)")
	level := flag.String("level", "basic", "optimization level: none|basic|aggressive")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	log := logging.New(*verbose)

	if *regionPath == "" {
		fmt.Fprintln(os.Stderr, "usage: oidbtctl -region <file> [-level basic|aggressive]")
		os.Exit(2)
	}

	region, err := readRegionFile(*regionPath)
	if err != nil {
		logging.Fatal(log, nil, 1, "read region file", "error", err)
		return
	}

	d := oi.StdDecoder{}
	fn, _, err := frontend.Lower(region, d)
	if err != nil {
		logging.Fatal(log, nil, 1, "lower region", "error", err)
		return
	}

	mod := ssa.NewModule()
	mod.AddFunction(fn)

	passes, lvl := passesForLevel(*level)
	if err := optimizer.Run(mod, passes, lvl); err != nil {
		logging.Fatal(log, nil, 1, "optimize region", "error", err)
		return
	}

	dna := oi.Fingerprint(region, d)
	log.Info("compiled",
		slog.Uint64("entry", uint64(region.EntryPC)),
		slog.Int("insts_in", len(region.Insts)),
		slog.Int("insts_out", fn.NumInsts()),
		slog.Int("blocks", fn.NumBlocks()),
		slog.Uint64("dna", uint64(dna)),
	)
}

func passesForLevel(s string) ([]optimizer.PassCode, optimizer.Level) {
	switch strings.ToLower(s) {
	case "none":
		return nil, optimizer.LevelNone
	case "aggressive":
		return []optimizer.PassCode{
			optimizer.PassMem2Reg, optimizer.PassSimplifyCFG, optimizer.PassReassociate,
			optimizer.PassGVN, optimizer.PassLICM, optimizer.PassInstCombine,
			optimizer.PassDSE, optimizer.PassADCE, optimizer.PassSimplifyCFG,
		}, optimizer.LevelAggressive
	default:
		return []optimizer.PassCode{
			optimizer.PassMem2Reg, optimizer.PassSimplifyCFG, optimizer.PassDCE, optimizer.PassInstCombine,
		}, optimizer.LevelBasic
	}
}

func readRegionFile(path string) (oi.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return oi.Region{}, err
	}
	defer f.Close()

	var region oi.Region
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return oi.Region{}, fmt.Errorf("malformed region line %q", line)
		}
		pc, err := strconv.ParseUint(fields[0], 16, 32)
		if err != nil {
			return oi.Region{}, fmt.Errorf("bad pc %q: %w", fields[0], err)
		}
		word, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return oi.Region{}, fmt.Errorf("bad word %q: %w", fields[1], err)
		}
		if first {
			region.EntryPC = uint32(pc)
			first = false
		}
		region.Insts = append(region.Insts, oi.RegionInst{PC: uint32(pc), Word: uint32(word)})
	}
	if err := sc.Err(); err != nil {
		return oi.Region{}, err
	}
	return region, sc.Err()
}
