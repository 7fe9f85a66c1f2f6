// pwkctl is a host-side harness for the pw_kernel scheduler, memory
// protection lowering, and architecture ports. It boots a small simulated
// kernel image on simhost and reports what the scheduler did, without
// requiring real Cortex-M or RISC-V hardware.
//
// Commands:
//
//	boot     - bring up a simulated kernel image and run it to completion
//	threads  - boot a demo kernel and dump scheduler/thread state
//	regions  - lower a sample MemoryConfig for a target architecture
//	version  - print version information
package main

import (
	"fmt"
	"os"

	"pwkernel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
