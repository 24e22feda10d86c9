// The liteser-stat command displays stats for an ls2 or lsx file.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/convert"
	"github.com/liteser/lsfile/errors"
	"github.com/liteser/lsfile/ls2"
	"github.com/liteser/lsfile/lsx"
	"github.com/liteser/lsfile/schema"
)

const long = `Reads an ls2 or lsx file from INPUT, and writes to OUTPUT statistics for the
file. The format is detected from the content of the file.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.`

type StringLen struct {
	// Where is the record field or table key under which the string was
	// found.
	Where  string
	Length int
}

func (s StringLen) String() string {
	return fmt.Sprintf("%s(%d)", s.Where, s.Length)
}

type StringLenCount map[StringLen]int

func (p StringLenCount) MarshalJSON() ([]byte, error) {
	list := []StringLen{}
	for k := range p {
		list = append(list, k)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Length == list[j].Length {
			return list[i].Where < list[j].Where
		}
		return list[i].Length > list[j].Length
	})
	if len(list) > 20 {
		list = list[:20]
	}
	return json.Marshal(list)
}

type Stats struct {
	// Detected format.
	Format string

	// Binary format data.
	Binary *ls2.DecoderStats `json:",omitempty"`

	// Number of objects in the shared-object table.
	ObjectCount int

	// Number of values per kind, counting each occurrence.
	KindCount map[string]int

	// Number of records per type.
	RecordTypeCount map[string]int

	// Deepest nesting level of a value.
	MaxDepth int

	LargestStrings StringLenCount `json:",omitempty"`
}

func (s *Stats) Fill(doc *lsfile.Document) {
	if doc == nil {
		return
	}
	s.ObjectCount = len(doc.Objects)
	s.KindCount = map[string]int{}
	s.RecordTypeCount = map[string]int{}
	doc.Walk(func(v lsfile.Value, depth int) error {
		s.KindCount[v.Kind().String()]++
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		if r, ok := v.(*lsfile.Record); ok {
			s.RecordTypeCount[r.Type]++
		}
		return nil
	})

	s.LargestStrings = StringLenCount{}
	for _, obj := range doc.Objects {
		switch obj := obj.(type) {
		case *lsfile.Table:
			for _, e := range obj.Entries {
				if str, ok := e.Value.(lsfile.ValueString); ok {
					s.LargestStrings[StringLen{Where: fmt.Sprintf("Table[%v]", e.Key), Length: len(str)}]++
				}
			}
		case *lsfile.Record:
			for _, f := range obj.Fields {
				if str, ok := f.Value.(lsfile.ValueString); ok {
					s.LargestStrings[StringLen{Where: obj.Type + "." + f.Name, Length: len(str)}]++
				}
			}
		}
	}
}

func decode(r io.Reader, reg *lsfile.Registry, stats *Stats) (doc *lsfile.Document, warn, err error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(16)
	stats.Format = convert.Detect(head)
	switch stats.Format {
	case "ls2":
		stats.Binary = &ls2.DecoderStats{}
		return ls2.Decoder{Registry: reg, Stats: stats.Binary}.Decode(br)
	case "lsx":
		return lsx.Decoder{Registry: reg}.Decode(br)
	default:
		return nil, nil, errors.New("unrecognized format")
	}
}

func main() {
	var types []string
	cmd := &cobra.Command{
		Use:          "liteser-stat [INPUT] [OUTPUT]",
		Short:        "Display stats for an ls2 or lsx file",
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

			reg, err := schema.NewRegistry(types...)
			if err != nil {
				return err
			}

			var stats Stats
			doc, warn, err := decode(input, reg, &stats)
			if warn != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("decode warning: %w", warn))
			}
			if err != nil {
				return fmt.Errorf("decode error: %w", err)
			}
			stats.Fill(doc)

			je := json.NewEncoder(output)
			je.SetEscapeHTML(false)
			je.SetIndent("", "\t")
			if err := je.Encode(stats); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&types, "types", nil, "Read record types from a YAML `file` (repeatable)")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
