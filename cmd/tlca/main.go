// Command tlca loads a compiled bytecode image and runs it to completion.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tlca/machine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tlca",
		Short: "tlca runs compiled lambda calculus bytecode images",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var debug bool
	var forceGC bool

	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "execute a bytecode image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			opts := machine.OptionsFromEnvironment()
			if cmd.Flags().Changed("debug") {
				opts.Debug = debug
			}
			if cmd.Flags().Changed("force-gc") {
				opts.ForceGC = forceGC
			}

			err = machine.Execute(image, os.Stdout, opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(machine.ExitCode(err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "trace each instruction before executing it")
	cmd.Flags().BoolVar(&forceGC, "force-gc", false, "collect on every allocation instead of only when the heap is full")
	return cmd
}
