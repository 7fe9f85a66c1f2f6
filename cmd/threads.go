package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pwkernel/logging"
)

var (
	threadsWorkers int
	threadsYields  int
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Boot a small demo kernel and dump scheduler state",
	Long: `threads runs the same demo kernel as boot, then prints every
process and thread the scheduler knows about via Process.Dump/Thread.Dump,
the way a debugger attached to a real target would.`,
	Args: cobra.NoArgs,
	RunE: runThreads,
}

func init() {
	threadsCmd.Flags().IntVar(&threadsWorkers, "workers", 2, "number of worker threads to spawn")
	threadsCmd.Flags().IntVar(&threadsYields, "yields", 2, "number of voluntary timeslice yields per worker before it exits")
	rootCmd.AddCommand(threadsCmd)
}

func runThreads(cmd *cobra.Command, args []string) error {
	log := logging.Default()

	s, _, done := bootDemoKernel(threadsWorkers, threadsYields, 0)
	drainDone(s.YieldTimeslice, done, threadsWorkers)

	log.Info("demo kernel finished", "workers", threadsWorkers)
	fmt.Print(s.DumpAllThreads())
	return nil
}
