// The liteser-dump command writes a readable listing of the value stream of
// an ls2 file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/liteser/lsfile/ls2"
)

const long = `Reads an ls2 file from INPUT, and writes to OUTPUT a readable listing of its
header and of each tag of its value stream. Records are listed whether or not
their types are known.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.`

func main() {
	cmd := &cobra.Command{
		Use:          "liteser-dump [INPUT] [OUTPUT]",
		Short:        "List the contents of an ls2 file",
		Long:         long,
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input io.Reader = os.Stdin
			var output io.Writer = os.Stdout
			if len(args) >= 1 && args[0] != "-" {
				in, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer in.Close()
				input = in
			}
			if len(args) >= 2 && args[1] != "-" {
				out, err := os.Create(args[1])
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer out.Close()
				output = out
			}

			warn, err := ls2.Decoder{}.Dump(output, input)
			fmt.Fprintln(output)
			if warn != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("warning: %w", warn))
			}
			return err
		},
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
