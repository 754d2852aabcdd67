package attachments

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rescale/witdl/internal/constants"
	"github.com/rescale/witdl/internal/diskspace"
	"github.com/rescale/witdl/internal/logging"
	"github.com/rescale/witdl/internal/models"
)

// Authorizer establishes a session with the work-tracking service.
type Authorizer interface {
	Authorize(ctx context.Context, serverURL string) (Connection, error)
}

// Connection issues requests within an authorized session.
type Connection interface {
	// QueryByID runs a saved query. A nil result with a nil error means the
	// service returned no result.
	QueryByID(ctx context.Context, queryID string) (models.QueryResult, error)
	// GetWorkItem fetches a work item with its relations expanded.
	GetWorkItem(ctx context.Context, id int) (*models.WorkItem, error)
	// GetAttachmentContent opens the content stream of an attachment.
	GetAttachmentContent(ctx context.Context, attachmentID string) (io.ReadCloser, error)
}

// Progress receives per-file transfer progress.
type Progress interface {
	StartFile(workItemID int, name, localPath string, size int64) FileProgress
}

// FileProgress tracks a single attachment transfer.
type FileProgress interface {
	// Wrap returns a reader that reports bytes read from r.
	Wrap(r io.Reader) io.Reader
	Complete(err error)
}

// Options are the parameters of a single run.
type Options struct {
	ServerURL  string
	QueryID    string
	OutputRoot string
	Layout     Layout
	Policy     Policy
	// Overwrite is accepted for compatibility but has no effect: existing
	// destination files are always truncated.
	Overwrite bool
}

// Pipeline downloads the attachments of every work item a query returns.
// Work items and their attachments are processed one at a time.
type Pipeline struct {
	auth     Authorizer
	out      io.Writer
	logger   *logging.Logger
	progress Progress
}

// NewPipeline creates a pipeline. out receives the human-readable progress
// lines; logger and progress may be nil.
func NewPipeline(auth Authorizer, out io.Writer, logger *logging.Logger, progress Progress) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &Pipeline{
		auth:     auth,
		out:      out,
		logger:   logger,
		progress: progress,
	}
}

// Run authorizes, resolves the query and downloads attachments item by item.
//
// An error is returned when authorization or the query fails, or when ctx
// is cancelled; the report then has Status RunFailed and keeps the outcomes
// recorded so far. Failures of individual work items are recorded in their
// outcome and the run moves on to the next id.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{ServerURL: opts.ServerURL, QueryID: opts.QueryID}

	fmt.Fprintf(p.out, "Authorizing to %s...\n", opts.ServerURL)
	conn, err := p.auth.Authorize(ctx, opts.ServerURL)
	if err != nil {
		return p.fail(report, &AuthError{ServerURL: opts.ServerURL, Err: err})
	}

	result, err := conn.QueryByID(ctx, opts.QueryID)
	if err != nil {
		return p.fail(report, fmt.Errorf("failed to run query %s: %w", opts.QueryID, err))
	}

	if result == nil {
		return p.empty(report, "Query result is null."), nil
	}
	ids, found := ResolveQuery(result)
	if !found {
		return p.empty(report, "Query did not find any results"), nil
	}

	p.logger.Info().
		Str("query", opts.QueryID).
		Int("work_items", len(ids)).
		Str("layout", opts.Layout.String()).
		Str("output", opts.OutputRoot).
		Msg("Query resolved")

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return p.fail(report, fmt.Errorf("run cancelled before work item %d: %w", id, err))
		}
		report.Outcomes = append(report.Outcomes, p.processItem(ctx, conn, id, opts))
	}
	if err := ctx.Err(); err != nil {
		return p.fail(report, fmt.Errorf("run cancelled: %w", err))
	}

	report.Status = RunCompleted
	fmt.Fprintln(p.out, "All Done!")
	return report, nil
}

func (p *Pipeline) fail(report *Report, err error) (*Report, error) {
	report.Status = RunFailed
	report.Err = err
	p.logger.Error().Err(err).Msg("Run aborted")
	return report, err
}

func (p *Pipeline) empty(report *Report, reason string) *Report {
	report.Status = RunEmpty
	report.EmptyReason = reason
	fmt.Fprintln(p.out, reason)
	return report
}

// processItem never returns an error; everything that goes wrong for this
// id ends up in the outcome.
func (p *Pipeline) processItem(ctx context.Context, conn Connection, id int, opts Options) ItemOutcome {
	fmt.Fprintf(p.out, "Downloading %s for %d... ", opts.Policy, id)

	outcome := p.downloadItem(ctx, conn, id, opts)

	switch outcome.Kind {
	case OutcomeNoAttachments:
		fmt.Fprintln(p.out, "No attachment")
	case OutcomeDownloaded:
		fmt.Fprintln(p.out, "Done")
	case OutcomeFailed:
		fmt.Fprintf(p.out, "Failed: %v\n", RootCause(outcome.Err))
		p.logger.Warn().Err(outcome.Err).Int("work_item", id).Msg("Work item failed")
	}
	return outcome
}

func (p *Pipeline) downloadItem(ctx context.Context, conn Connection, id int, opts Options) ItemOutcome {
	outcome := ItemOutcome{ID: id}

	item, err := conn.GetWorkItem(ctx, id)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = fmt.Errorf("failed to get work item %d: %w", id, err)
		return outcome
	}
	if item == nil {
		outcome.Kind = OutcomeNoAttachments
		return outcome
	}

	p.logger.Debug().
		Int("work_item", id).
		Str("title", item.Title()).
		Int("relations", len(item.Relations)).
		Msg("Work item fetched")

	selected := SelectAttachments(item.Relations, opts.Policy)
	if len(selected) == 0 {
		if n := CountAttachments(item.Relations); n > 0 {
			p.logger.Debug().Int("work_item", id).Int("skipped", n).Msg("Attachments missing name or authorized date")
		}
		outcome.Kind = OutcomeNoAttachments
		return outcome
	}

	outcome.Kind = OutcomeDownloaded
	for _, rel := range selected {
		path, err := p.downloadAttachment(ctx, conn, id, rel, opts)
		if err != nil {
			outcome.Kind = OutcomeFailed
			outcome.Err = err
			return outcome
		}
		outcome.Count++
		outcome.Files = append(outcome.Files, path)
	}
	return outcome
}

func (p *Pipeline) downloadAttachment(ctx context.Context, conn Connection, id int, rel models.WorkItemRelation, opts Options) (string, error) {
	name := rel.Attributes.Name

	contentID := ContentID(rel.URL)
	if contentID == "" {
		return "", fmt.Errorf("attachment %q has no content id in %q", name, rel.URL)
	}

	body, err := conn.GetAttachmentContent(ctx, contentID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch attachment %q: %w", name, err)
	}
	defer body.Close()

	path, err := BuildOutputPath(opts.OutputRoot, id, name, opts.Layout)
	if err != nil {
		return "", err
	}
	if err := diskspace.CheckAvailableSpace(path, rel.Attributes.ResourceSize, constants.DiskSpaceSafetyMargin); err != nil {
		return "", err
	}

	fp := p.progress.StartFile(id, name, path, rel.Attributes.ResourceSize)
	written, err := writeFile(path, fp.Wrap(body))
	fp.Complete(err)
	if err != nil {
		return "", err
	}

	p.logger.Debug().
		Int("work_item", id).
		Str("attachment", describe(rel)).
		Str("content_id", contentID).
		Str("path", path).
		Int64("bytes", written).
		Msg("Attachment written")
	return path, nil
}

// writeFile streams r into path, creating or truncating it. The handle is
// closed before returning; a partial file is left in place on error.
func writeFile(path string, r io.Reader) (written int64, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	written, err = io.Copy(f, r)
	if err != nil {
		return written, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return written, nil
}

type nopProgress struct{}

func (nopProgress) StartFile(int, string, string, int64) FileProgress { return nopFileProgress{} }

type nopFileProgress struct{}

func (nopFileProgress) Wrap(r io.Reader) io.Reader { return r }
func (nopFileProgress) Complete(error)             {}
