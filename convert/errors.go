package convert

import (
	"errors"
	"strconv"

	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/ls2"
	"github.com/liteser/lsfile/lsx"
)

// UnknownFormatError indicates a format name that is not registered.
type UnknownFormatError string

func (err UnknownFormatError) Error() string {
	return "unknown format " + strconv.Quote(string(err))
}

// FileAccessError indicates a failure to access a file or directory.
type FileAccessError struct {
	Path string
	// Op is the operation that failed, such as "read" or "write".
	Op    string
	Cause error
}

func (err FileAccessError) Error() string {
	return err.Op + " " + err.Path + ": " + err.Cause.Error()
}

func (err FileAccessError) Unwrap() error {
	return err.Cause
}

// FileError attaches the path of the file being converted to an error
// returned by a codec.
type FileError struct {
	Path  string
	Cause error
}

func (err FileError) Error() string {
	return err.Path + ": " + err.Cause.Error()
}

func (err FileError) Unwrap() error {
	return err.Cause
}

// Kind returns the name of the kind of err, for reporting.
func Kind(err error) string {
	var (
		unknownFormat UnknownFormatError
		fileAccess    FileAccessError
		unknownTag    ls2.UnknownTagError
		unknownType   lsfile.UnknownTypeError
		badRef        lsfile.BadReferenceError
		duplicateType lsfile.DuplicateTypeError
		malformed     lsx.MalformedTextError
		binVersion    ls2.ErrUnrecognizedVersion
		textVersion   lsx.ErrUnrecognizedVersion
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unknownFormat):
		return "UnknownFormatError"
	case errors.As(err, &fileAccess):
		return "FileAccessError"
	case errors.Is(err, ls2.ErrTruncatedInput):
		return "TruncatedInputError"
	case errors.As(err, &unknownTag):
		return "UnknownTagError"
	case errors.As(err, &unknownType):
		return "UnknownTypeError"
	case errors.As(err, &badRef):
		return "BadReferenceError"
	case errors.As(err, &duplicateType):
		return "DuplicateTypeError"
	case errors.As(err, &malformed):
		return "MalformedTextError"
	case errors.As(err, &binVersion), errors.As(err, &textVersion):
		return "UnrecognizedVersionError"
	case errors.Is(err, ls2.ErrInvalidSig):
		return "InvalidSignatureError"
	default:
		return "Error"
	}
}
