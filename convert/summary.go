package convert

import (
	"fmt"

	"github.com/liteser/lsfile/errors"
)

// Summary reports the outcome of a batch.
type Summary struct {
	// Succeeded is the number of files converted and written.
	Succeeded int
	// Unchanged is the number of files converted whose existing output was
	// already identical, and so was not rewritten.
	Unchanged int
	// Failed is the number of files that could not be converted.
	Failed int
	// Skipped is the number of files not started because the run was
	// interrupted.
	Skipped int
	// Interrupted is set when the context of the run was done before every
	// file was started.
	Interrupted bool
	// Failures holds one error per failed file, in the order of the jobs.
	Failures errors.Errors
}

// String returns the final summary line.
func (s *Summary) String() string {
	line := fmt.Sprintf("%d succeeded, %d unchanged, %d failed", s.Succeeded, s.Unchanged, s.Failed)
	if s.Skipped > 0 || s.Interrupted {
		line += fmt.Sprintf(", %d skipped (interrupted)", s.Skipped)
	}
	return line
}

// Err returns an error if any file failed or the run was interrupted.
func (s *Summary) Err() error {
	if s.Interrupted {
		return errors.Union(s.Failures, fmt.Errorf("interrupted with %d files skipped", s.Skipped))
	}
	return s.Failures.Return()
}
