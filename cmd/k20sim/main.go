package main

import (
	"flag"
	"fmt"
	"os"

	"k20rt/core"
	"k20rt/sim"
)

var (
	scenario = flag.String("scenario", "", "Scenario YAML file")
	trace    = flag.Bool("trace", false, "Print the trace ring after the run")
	verbose  = flag.Bool("verbose", false, "Enable debug output")
)

func main() {
	flag.Parse()

	if *scenario == "" {
		fmt.Fprintln(os.Stderr, "Usage: k20sim -scenario <file.yaml> [-trace]")
		os.Exit(2)
	}

	core.SetDebugWriter(func(s string) { fmt.Println(s) })
	core.SetDebugEnabled(*verbose)

	s, err := sim.LoadScenario(*scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running scenario %s (%d devices, %d tasks)\n", s.Name, len(s.Devices), len(s.Tasks))
	report, err := s.Run()
	if report != nil {
		for _, r := range report.Results {
			fmt.Println(r)
		}
		fmt.Printf("Elapsed: %d ticks (%v)\n", report.Elapsed, report.Elapsed.Duration())
	}
	if *trace {
		core.PrintTrace()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
