package convert

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Job is the conversion of one input file to one output file.
type Job struct {
	Input  string
	Output string
}

// Match returns the jobs for converting input to output. If input is a
// file, then output is the output file. If input is a directory, then every
// file under it with the extension "."+inFormat is matched, and its output is
// the same relative path under output, with the extension replaced by
// "."+outFormat.
func Match(input, output, inFormat, outFormat string) ([]Job, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, FileAccessError{Path: input, Op: "stat", Cause: err}
	}
	if !info.IsDir() {
		return []Job{{Input: input, Output: output}}, nil
	}

	inExt := "." + inFormat
	outExt := "." + outFormat
	var jobs []Job
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return FileAccessError{Path: path, Op: "walk", Cause: err}
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), inExt) {
			return nil
		}
		rel, err := filepath.Rel(input, path)
		if err != nil {
			return FileAccessError{Path: path, Op: "walk", Cause: err}
		}
		jobs = append(jobs, Job{
			Input:  path,
			Output: filepath.Join(output, strings.TrimSuffix(rel, inExt)+outExt),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
