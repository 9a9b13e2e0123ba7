package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/LFroesch/voyager/internal/fileops"
	"github.com/LFroesch/voyager/internal/ops"
)

// opProgress renders scheduler progress on stderr.
type opProgress struct {
	bar *progressbar.ProgressBar
}

func newOpProgress(description string) *opProgress {
	return &opProgress{
		bar: progressbar.NewOptions64(1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(100),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		),
	}
}

// update pushes the record's byte progress into the bar. Batches of
// directories report totals discovered at submission, so ChangeMax
// keeps the denominator honest.
func (p *opProgress) update(rec *ops.Record) {
	prog := rec.Progress()
	if prog.BytesTotal > 0 {
		p.bar.ChangeMax64(prog.BytesTotal)
		_ = p.bar.Set64(prog.BytesDone)
		return
	}
	// Byte-less batches (deletes, renames) show item counts instead.
	if prog.ItemsTotal > 0 {
		p.bar.ChangeMax64(int64(prog.ItemsTotal))
		_ = p.bar.Set64(int64(prog.ItemsDone))
	}
}

func (p *opProgress) finish() {
	_ = p.bar.Finish()
}

// runOp submits one batch, streams progress, and reports the per-item
// manifest. The root context cancels the record on interrupt.
func runOp(description string, req ops.Request) error {
	backup, err := fileops.NewBackup(cfg.BackupDir)
	if err != nil {
		return err
	}

	bar := newOpProgress(description)
	sched := ops.NewScheduler(backup, ops.Options{
		Workers:    cfg.Workers,
		OnProgress: bar.update,
	})
	go func() {
		for range sched.Results() {
		}
	}()

	// Headless runs register no decision callback, so under the default
	// "ask" policy conflicting items fail with AlreadyExists unless an
	// --on-conflict flag was given.
	req.Policy = cfg.Policy()

	rec, err := sched.Submit(req)
	if err != nil {
		return err
	}

	go func() {
		<-rootContext.Done()
		rec.Cancel()
	}()

	<-rec.Done()
	bar.finish()

	return reportManifest(rec)
}

// reportManifest prints per-item failures and returns an error when
// nothing succeeded.
func reportManifest(rec *ops.Record) error {
	failed := 0
	for _, it := range rec.Items() {
		switch it.Status {
		case ops.StatusFailed:
			failed++
			fmt.Fprintf(os.Stderr, "failed: %s: %v\n", it.Source, it.Err)
		case ops.StatusCancelled:
			fmt.Fprintf(os.Stderr, "cancelled: %s\n", it.Source)
		case ops.StatusSkipped:
			fmt.Fprintf(os.Stderr, "skipped: %s (destination exists)\n", it.Source)
		}
	}

	switch rec.Status() {
	case ops.StatusCompleted:
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "completed with %d failed item(s)\n", failed)
		}
		return nil
	case ops.StatusCancelled:
		return errors.New("cancelled")
	default:
		return fmt.Errorf("operation %s", rec.Status())
	}
}
