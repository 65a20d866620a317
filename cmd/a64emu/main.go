// Package main provides the a64emu command: a user-mode AArch64
// emulator for statically linked Linux executables.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/a64emu/disasm"
	"github.com/sarchlab/a64emu/emu"
	"github.com/sarchlab/a64emu/kernel"
	"github.com/sarchlab/a64emu/loader"
	"github.com/sarchlab/a64emu/timing"
)

var (
	flagTrace     bool
	flagStats     bool
	flagConfig    string
	flagMaxCycles uint64
	flagVerbose   bool
	flagChecks    bool
)

func main() {
	root := &cobra.Command{
		Use:   "a64emu [flags] <program.elf> [args...]",
		Short: "Emulate a statically linked ARM64 Linux user-mode program",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,

		SilenceUsage: true,
	}
	root.Flags().BoolVar(&flagTrace, "trace", false, "trace every instruction to stderr")
	root.Flags().BoolVar(&flagStats, "stats", false, "model L1 caches and report hit rates")
	root.Flags().StringVar(&flagConfig, "config", "", "path to cache configuration JSON file")
	root.Flags().Uint64Var(&flagMaxCycles, "max-cycles", 0, "stop after this many instructions (0 = no limit)")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "report a run summary")
	root.Flags().BoolVar(&flagChecks, "checks", false, "enable per-step PC/SP and memory range checks")
	root.Flags().SetInterspersed(false)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	prog, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	img, err := loader.BuildImage(prog, args, os.Environ())
	if err != nil {
		return err
	}

	if flagVerbose {
		fmt.Printf("loaded: %s\n", args[0])
		fmt.Printf("entry point: %#x\n", img.Entry)
		fmt.Printf("memory: %d MB at %#x\n", len(img.Mem)/(1024*1024), img.Base)
	}

	supervisor := kernel.New(img)
	opts := []emu.MachineOption{
		emu.WithSupervisor(supervisor),
		emu.WithChecks(flagChecks),
	}

	if flagTrace {
		opts = append(opts, emu.WithTracer(disasm.New(os.Stderr, prog.LookupSymbol)))
	}

	var caches *timing.Hierarchy
	if flagStats {
		cfg := timing.DefaultConfig()
		if flagConfig != "" {
			if cfg, err = timing.LoadConfig(flagConfig); err != nil {
				return err
			}
		}
		caches = timing.NewHierarchy(cfg)
		opts = append(opts, emu.WithMemoryObserver(caches))
	}

	mem := emu.NewMemory(img.Mem, img.Base)
	m := emu.NewMachine(mem, img.Entry, img.StackSize, img.InitialSP, opts...)
	if flagTrace {
		m.SetTrace(true)
	}

	maxCycles := flagMaxCycles
	if maxCycles == 0 {
		maxCycles = ^uint64(0)
	}
	m.Run(maxCycles)

	exited, code := supervisor.Exited()
	if flagVerbose {
		fmt.Printf("\ninstructions executed: %d\n", m.Cycles)
		fmt.Printf("exit code: %d\n", code)
	}
	if flagStats && caches != nil {
		printStats("l1i", caches.L1I.Stats())
		printStats("l1d", caches.L1D.Stats())
	}
	if !exited && flagMaxCycles != 0 {
		fmt.Fprintf(os.Stderr, "cycle limit reached at pc %#x\n", m.PC)
	}
	os.Exit(int(uint8(code)))
	return nil
}

func printStats(name string, s timing.Statistics) {
	fmt.Printf("%s: %d accesses, %d hits, %d misses (%.2f%% hit rate), %d evictions, %d writebacks\n",
		name, s.Accesses, s.Hits, s.Misses, 100*s.HitRate(), s.Evictions, s.Writebacks)
}
