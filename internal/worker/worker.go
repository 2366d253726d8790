// Package worker drives one job at a time through the submission form.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
	"github.com/SidSin0809/hdock-batch/internal/metrics"
)

// FormSelectors locates the controls of the service's submission form.
type FormSelectors struct {
	ReceptorFile    string
	LigandFile      string
	LigandSequence  string
	LigandType      string
	LigandTypeValue string
	SiteToggle      string
	SiteInput       string
	Email           string
	JobName         string
	Submit          string
}

// Config controls Worker behavior.
type Config struct {
	ServiceURL    string
	Form          FormSelectors
	SubmitTimeout time.Duration
}

// Worker consumes specs from the queue and executes the submission state
// machine, one job at a time, on its own browser session.
type Worker struct {
	queue   hdock.Queue
	browser hdock.Browser
	results chan<- hdock.JobResult
	clock   hdock.Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker. The browser session belongs exclusively to this
// worker until the worker exits.
func New(
	queue hdock.Queue,
	browser hdock.Browser,
	results chan<- hdock.JobResult,
	clock hdock.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 90 * time.Second
	}
	return &Worker{
		queue:   queue,
		browser: browser,
		results: results,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run blocks, consuming specs until the queue drains or the context ends.
// Every dequeued spec yields exactly one result on the results channel.
func (w *Worker) Run(ctx context.Context) {
	for {
		spec, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, hdock.ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		res := w.submit(ctx, spec)
		select {
		case w.results <- res:
		case <-ctx.Done():
			return
		}
	}
}

// submit walks one spec through
// Idle -> Navigated -> FormFilled -> [Uploaded] -> Submitted -> ResultCaptured,
// converting any failure into a terminal Failed result. The page is released
// on every exit path.
func (w *Worker) submit(ctx context.Context, spec hdock.JobSpec) hdock.JobResult {
	metrics.JobStarted()
	start := time.Now()
	outcome := metrics.OutcomeFailed
	defer func() { metrics.JobFinished(outcome, time.Since(start)) }()

	res := hdock.JobResult{RowIndex: spec.RowIndex, JobName: spec.JobName}
	state := hdock.StateIdle

	page, err := w.browser.NewPage(ctx)
	if err != nil {
		return w.fail(res, state, hdock.ReasonNavigationFailed, err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, w.cfg.ServiceURL); err != nil {
		return w.fail(res, state, hdock.ReasonNavigationFailed, err)
	}
	state = w.advance(spec, hdock.StateNavigated)

	if err := w.fillForm(ctx, page, spec); err != nil {
		return w.fail(res, state, hdock.ReasonFormFillFailed, err)
	}
	state = w.advance(spec, hdock.StateFormFilled)

	if spec.Ligand.Kind == hdock.LigandFilePath {
		if err := w.confirmUpload(ctx, page); err != nil {
			return w.fail(res, state, hdock.ReasonAttachmentFailed, err)
		}
		state = w.advance(spec, hdock.StateUploaded)
	}

	if err := page.SubmitAndWait(ctx, w.cfg.Form.Submit, w.cfg.SubmitTimeout); err != nil {
		return w.fail(res, state, hdock.ReasonSubmissionTimeout, err)
	}
	state = w.advance(spec, hdock.StateSubmitted)

	finalURL, err := page.CurrentURL(ctx)
	if err != nil {
		return w.fail(res, state, hdock.ReasonSubmissionTimeout, err)
	}
	w.advance(spec, hdock.StateResultCaptured)

	ext := hdock.ExtractToken(finalURL)
	res.Token = ext.Token
	res.ResultURL = ext.ResultURL
	res.OK = ext.OK
	res.Timestamp = w.clock.Now()

	switch {
	case ext.OK:
		outcome = metrics.OutcomeOK
	case ext.Token == "":
		outcome = metrics.OutcomeTokenShort
		res.Error = "no token extracted from result url"
	default:
		outcome = metrics.OutcomeTokenShort
		res.Error = fmt.Sprintf("token %q shorter than %d characters", ext.Token, hdock.MinTokenLen)
	}
	return res
}

func (w *Worker) fillForm(ctx context.Context, page hdock.Page, spec hdock.JobSpec) error {
	if _, err := os.Stat(spec.ReceptorPath); err != nil {
		return fmt.Errorf("receptor file: %w", err)
	}
	if err := page.AttachFile(ctx, w.cfg.Form.ReceptorFile, spec.ReceptorPath); err != nil {
		return fmt.Errorf("attach receptor: %w", err)
	}
	count, err := page.AttachedFileCount(ctx, w.cfg.Form.ReceptorFile)
	if err != nil {
		return fmt.Errorf("read receptor attachment state: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("receptor did not attach to %s", w.cfg.Form.ReceptorFile)
	}

	switch spec.Ligand.Kind {
	case hdock.LigandFilePath:
		if err := page.AttachFile(ctx, w.cfg.Form.LigandFile, spec.Ligand.Path); err != nil {
			return fmt.Errorf("attach ligand: %w", err)
		}
	case hdock.LigandSequence:
		if err := page.Fill(ctx, w.cfg.Form.LigandSequence, spec.Ligand.Sequence); err != nil {
			return fmt.Errorf("fill ligand sequence: %w", err)
		}
		if err := page.Fill(ctx, w.cfg.Form.LigandType, w.cfg.Form.LigandTypeValue); err != nil {
			return fmt.Errorf("select ligand type: %w", err)
		}
	default:
		return fmt.Errorf("unclassified ligand for row %d", spec.RowIndex)
	}

	if len(spec.SiteResidues) > 0 {
		// The toggle is decorative on some variants of the page; a failed
		// click is tolerated as long as the residue field itself fills.
		if err := page.Click(ctx, w.cfg.Form.SiteToggle); err != nil {
			w.logger.Debug("site toggle click failed", zap.Int("row", spec.RowIndex), zap.Error(err))
		}
		if err := page.Fill(ctx, w.cfg.Form.SiteInput, formatResidues(spec.SiteResidues)); err != nil {
			return fmt.Errorf("fill site residues: %w", err)
		}
	}

	if spec.Email != "" {
		if err := page.Fill(ctx, w.cfg.Form.Email, spec.Email); err != nil {
			return fmt.Errorf("fill email: %w", err)
		}
	}
	if err := page.Fill(ctx, w.cfg.Form.JobName, spec.JobName); err != nil {
		return fmt.Errorf("fill job name: %w", err)
	}
	return nil
}

func (w *Worker) confirmUpload(ctx context.Context, page hdock.Page) error {
	count, err := page.AttachedFileCount(ctx, w.cfg.Form.LigandFile)
	if err != nil {
		return fmt.Errorf("read ligand attachment state: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("ligand file did not attach to %s", w.cfg.Form.LigandFile)
	}
	return nil
}

func (w *Worker) advance(spec hdock.JobSpec, next hdock.JobState) hdock.JobState {
	w.logger.Debug("state transition",
		zap.Int("row", spec.RowIndex),
		zap.String("state", string(next)),
	)
	return next
}

func (w *Worker) fail(res hdock.JobResult, from hdock.JobState, reason string, err error) hdock.JobResult {
	metrics.StateFailure(reason)
	w.logger.Warn("submission failed",
		zap.Int("row", res.RowIndex),
		zap.String("from_state", string(from)),
		zap.String("reason", reason),
		zap.Error(err),
	)
	res.Timestamp = w.clock.Now()
	res.OK = false
	res.Error = fmt.Sprintf("%s: %v", reason, err)
	return res
}

func formatResidues(residues []int) string {
	parts := make([]string, len(residues))
	for i, r := range residues {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ",")
}
