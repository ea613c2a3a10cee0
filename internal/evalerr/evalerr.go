// Package evalerr defines the fatal and non-fatal error taxonomy used
// throughout the evaluator, mirroring the propagation policy described for
// the reference-to-extracted matching pipeline: fatal conditions halt the
// run before any report is written, non-fatal conditions accumulate into
// the report itself.
package evalerr

import "fmt"

// Code identifies the machine-readable error class of a fatal condition.
type Code string

const (
	// CodeInputMissing means a reference/extracted directory or the
	// manifest file does not exist.
	CodeInputMissing Code = "INPUT_MISSING"

	// CodeDecodeFailure means an image file could not be decoded.
	CodeDecodeFailure Code = "DECODE_FAILURE"

	// CodeManifestMalformed means the manifest is missing required
	// fields or has fields of the wrong type.
	CodeManifestMalformed Code = "MANIFEST_MALFORMED"

	// CodeInvariantViolation marks a structural bug surfaced by the
	// audit stage (UNEXPECTED_CURRENT_TIER_SHOULD_MATCH). Not fatal in
	// the sense of aborting before a report is produced, but it forces
	// the verdict to FAIL regardless of numeric metrics.
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Error is a single-line, machine-classifiable failure. Fatal errors
// (everything but CodeInvariantViolation) terminate the run before any
// report is written; CodeInvariantViolation is recorded in the report.
type Error struct {
	Code Code
	Path string // offending path or record, when applicable
	Msg  string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Msg, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// InputMissing reports that a required input path does not exist.
func InputMissing(path, msg string) *Error {
	return &Error{Code: CodeInputMissing, Path: path, Msg: msg}
}

// DecodeFailure reports that an image could not be decoded.
func DecodeFailure(path, msg string) *Error {
	return &Error{Code: CodeDecodeFailure, Path: path, Msg: msg}
}

// ManifestMalformed reports a manifest schema violation.
func ManifestMalformed(path, msg string) *Error {
	return &Error{Code: CodeManifestMalformed, Path: path, Msg: msg}
}

// InvariantViolation reports a solver/scorer discrepancy caught by the
// tier audit.
func InvariantViolation(refID, msg string) *Error {
	return &Error{Code: CodeInvariantViolation, Path: refID, Msg: msg}
}

// Fatal reports whether an error of this code halts the run before any
// report is written.
func (e *Error) Fatal() bool {
	return e.Code != CodeInvariantViolation
}
