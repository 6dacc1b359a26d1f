// Package build defines the read-only view of a completed build that the
// notifier consumes. Host build systems adapt their own types to Record.
package build

import "strings"

// Result is the outcome of a build.
type Result string

const (
	ResultNone     Result = ""
	ResultSuccess  Result = "SUCCESS"
	ResultUnstable Result = "UNSTABLE"
	ResultFailure  Result = "FAILURE"
	ResultAborted  Result = "ABORTED"
)

// ParseResult normalises a textual result. Unrecognised values are kept
// verbatim in upper case so they fall through policy checks as "other".
func ParseResult(s string) Result {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "NONE" || s == "NOT_BUILT" {
		return ResultNone
	}
	return Result(s)
}

// String renders the result for message templates. An unset result renders NONE.
func (r Result) String() string {
	if r == ResultNone {
		return "NONE"
	}
	return string(r)
}

// Artifact is one archived build output.
type Artifact struct {
	FileName string `json:"file_name" yaml:"file_name"`
	Href     string `json:"href" yaml:"href"`
}

// Record exposes the parts of a build the notifier reads.
type Record interface {
	// ProjectName is the display name of the owning project.
	ProjectName() string
	// DisplayName is the build's display name, e.g. "#42".
	DisplayName() string
	Result() Result
	// PreviousResult returns the previous build's result and false when
	// there is no previous build.
	PreviousResult() (Result, bool)
	Artifacts() []Artifact
	// Culprits lists authors of every build since the last successful one.
	Culprits() []string
	// ChangeSetAuthors lists the author of each change-set entry, in order.
	ChangeSetAuthors() []string
	// URL is the build's path relative to the build system's base URL.
	URL() string
}
