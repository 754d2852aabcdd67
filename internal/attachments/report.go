package attachments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rescale/witdl/internal/diskspace"
)

// OutcomeKind classifies what happened to one work item.
type OutcomeKind int

const (
	// OutcomeNoAttachments means the item had no downloadable attachment.
	OutcomeNoAttachments OutcomeKind = iota
	// OutcomeDownloaded means every selected attachment was written.
	OutcomeDownloaded
	// OutcomeFailed means fetching the item or one of its attachments failed.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoAttachments:
		return "no-attachments"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemOutcome is the result for a single work item. Count and Files cover
// the attachments written before a failure too.
type ItemOutcome struct {
	ID    int
	Kind  OutcomeKind
	Count int
	Files []string
	Err   error
}

// RunStatus is the overall result of a run.
type RunStatus int

const (
	// RunCompleted means every resolved id was processed.
	RunCompleted RunStatus = iota
	// RunEmpty means the query returned nothing to process.
	RunEmpty
	// RunFailed means authorization or the query itself failed.
	RunFailed
)

func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunEmpty:
		return "empty"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Report aggregates the outcomes of a run.
type Report struct {
	ServerURL string
	QueryID   string
	Status    RunStatus
	// EmptyReason is the message printed for RunEmpty.
	EmptyReason string
	Outcomes    []ItemOutcome
	Err         error
}

// Counts tallies outcomes by kind.
func (r *Report) Counts() (downloaded, noAttachments, failed int) {
	for _, o := range r.Outcomes {
		switch o.Kind {
		case OutcomeDownloaded:
			downloaded++
		case OutcomeNoAttachments:
			noAttachments++
		case OutcomeFailed:
			failed++
		}
	}
	return downloaded, noAttachments, failed
}

// FileCount returns the number of attachment files written.
func (r *Report) FileCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Count
	}
	return n
}

// Failures returns the failed outcomes in processing order.
func (r *Report) Failures() []ItemOutcome {
	var failed []ItemOutcome
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Summary renders a short multi-line summary for the end of a run.
func (r *Report) Summary() string {
	var b strings.Builder
	switch r.Status {
	case RunFailed:
		fmt.Fprintf(&b, "Run failed: %v\n", RootCause(r.Err))
		return b.String()
	case RunEmpty:
		fmt.Fprintf(&b, "%s\n", r.EmptyReason)
		return b.String()
	}

	downloaded, none, failed := r.Counts()
	fmt.Fprintf(&b, "Work items: %d (downloaded: %d, no attachment: %d, failed: %d)\n",
		len(r.Outcomes), downloaded, none, failed)
	fmt.Fprintf(&b, "Files written: %d\n", r.FileCount())
	for _, o := range r.Failures() {
		fmt.Fprintf(&b, "  ✗ %d: %v\n", o.ID, RootCause(o.Err))
		if diskspace.IsInsufficientSpaceError(o.Err) {
			fmt.Fprintln(&b, "    (out of disk space; free space on the output volume and rerun)")
		}
	}
	return b.String()
}

// ErrAuthorization matches every *AuthError with errors.Is.
var ErrAuthorization = errors.New("authorization failed")

// AuthError reports that a session with the service could not be established.
type AuthError struct {
	ServerURL string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization to %s failed: %v", e.ServerURL, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthorization
}

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// RootCause follows the Unwrap chain to the innermost error. For errors
// that wrap several causes the last one is followed.
func RootCause(err error) error {
	for err != nil {
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			errs := x.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := x.Unwrap()
			if next == nil {
				return err
			}
			err = next
		default:
			return err
		}
	}
	return nil
}
