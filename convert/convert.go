package convert

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/liteser/lsfile/errors"
)

// Converter converts files from one format to another.
type Converter struct {
	From Format
	To   Format

	// Jobs is the maximum number of files converted at once. Values less
	// than 1 mean one.
	Jobs int

	// Force causes outputs to be written even when the existing output is
	// identical.
	Force bool

	// Log receives one entry per file. If nil, the standard logger is used.
	Log *logrus.Entry
}

type result int

const (
	resultSkipped result = iota
	resultSucceeded
	resultUnchanged
	resultFailed
)

// Run converts each job. A file that fails is recorded in the summary and
// does not stop the remaining files. When ctx is done, no further files are
// started, and those not started are counted as skipped.
func (c *Converter) Run(ctx context.Context, jobs []Job) *Summary {
	log := c.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	limit := c.Jobs
	if limit < 1 {
		limit = 1
	}

	results := make([]result, len(jobs))
	failures := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fields := logrus.Fields{"input": job.Input, "output": job.Output}
			res, err := c.convert(job, log.WithFields(fields))
			results[i], failures[i] = res, err
			if err != nil {
				log.WithFields(fields).WithField("kind", Kind(err)).Error(err)
			}
			return nil
		})
	}
	g.Wait()

	var s Summary
	for i, res := range results {
		switch res {
		case resultSucceeded:
			s.Succeeded++
		case resultUnchanged:
			s.Unchanged++
		case resultFailed:
			s.Failed++
			s.Failures = s.Failures.Append(failures[i])
		default:
			s.Skipped++
		}
	}
	s.Interrupted = ctx.Err() != nil && s.Skipped > 0
	return &s
}

func (c *Converter) convert(job Job, log *logrus.Entry) (result, error) {
	data, err := os.ReadFile(job.Input)
	if err != nil {
		return resultFailed, FileAccessError{Path: job.Input, Op: "read", Cause: err}
	}

	doc, warn, err := c.From.Decode(bytes.NewReader(data))
	if err != nil {
		return resultFailed, FileError{Path: job.Input, Cause: err}
	}
	if warns, ok := warn.(errors.Errors); ok {
		for _, w := range warns {
			log.Warn(w)
		}
	} else if warn != nil {
		log.Warn(warn)
	}

	var buf bytes.Buffer
	if err := c.To.Encode(&buf, doc); err != nil {
		return resultFailed, FileError{Path: job.Input, Cause: err}
	}

	if !c.Force && sameContent(job.Output, blake2b.Sum256(buf.Bytes())) {
		log.Debug("output unchanged")
		return resultUnchanged, nil
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o777); err != nil {
		return resultFailed, FileAccessError{Path: job.Output, Op: "write", Cause: err}
	}
	if err := atomicwriter.WriteFile(job.Output, buf.Bytes(), 0o666); err != nil {
		return resultFailed, FileAccessError{Path: job.Output, Op: "write", Cause: err}
	}
	log.Info("converted")
	return resultSucceeded, nil
}

// sameContent returns whether the file at path exists and has the given
// digest.
func sameContent(path string, sum [blake2b.Size256]byte) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return false
	}
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	return bytes.Equal(h.Sum(nil), sum[:])
}
