// Package dispatcher contains tests for worker coordination.
package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
	"github.com/SidSin0809/hdock-batch/internal/queue/memory"
	"github.com/SidSin0809/hdock-batch/internal/worker"
)

type countingBrowser struct {
	active *atomic.Int32
	peak   *atomic.Int32
}

func (b *countingBrowser) NewPage(_ context.Context) (hdock.Page, error) {
	cur := b.active.Add(1)
	for {
		peak := b.peak.Load()
		if cur <= peak || b.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return &countingPage{browser: b}, nil
}

func (b *countingBrowser) Close() {}

type countingPage struct {
	browser *countingBrowser
}

func (p *countingPage) Navigate(context.Context, string) error     { return nil }
func (p *countingPage) Fill(context.Context, string, string) error { return nil }
func (p *countingPage) AttachFile(context.Context, string, string) error {
	return nil
}
func (p *countingPage) AttachedFileCount(context.Context, string) (int, error) { return 1, nil }
func (p *countingPage) Click(context.Context, string) error                    { return nil }
func (p *countingPage) SubmitAndWait(context.Context, string, time.Duration) error {
	time.Sleep(20 * time.Millisecond)
	return nil
}
func (p *countingPage) CurrentURL(context.Context) (string, error) {
	return "http://hdock.phys.hust.edu.cn/jobs/xyz789ab", nil
}
func (p *countingPage) Close() { p.browser.active.Add(-1) }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func TestRunBoundsConcurrencyAndDeliversEveryJobOnce(t *testing.T) {
	t.Parallel()

	const jobs = 10
	const bound = 4

	receptor := filepath.Join(t.TempDir(), "receptor.pdb")
	require.NoError(t, os.WriteFile(receptor, []byte("ATOM\n"), 0o600))

	var active, peak atomic.Int32
	q := memory.NewQueue(jobs)
	results := make(chan hdock.JobResult, jobs)

	cfg := worker.Config{
		ServiceURL:    "http://hdock.phys.hust.edu.cn/",
		Form:          worker.FormSelectors{Submit: "input[name=upload]", JobName: "input[name=jobname]", LigandSequence: "#fastaseq2", LigandType: "#ligtyp", LigandTypeValue: "protein", ReceptorFile: "#pdbfile1", LigandFile: "#pdbfile2"},
		SubmitTimeout: time.Second,
	}
	workers := make([]*worker.Worker, 0, bound)
	for i := 0; i < bound; i++ {
		browser := &countingBrowser{active: &active, peak: &peak}
		workers = append(workers, worker.New(q, browser, results, realClock{}, cfg, zap.NewNop()))
	}

	specs := make([]hdock.JobSpec, 0, jobs)
	for i := 1; i <= jobs; i++ {
		specs = append(specs, hdock.JobSpec{
			RowIndex:     i,
			JobName:      "n",
			ReceptorPath: receptor,
			Ligand:       hdock.Ligand{Kind: hdock.LigandSequence, Sequence: "MALW"},
		})
	}

	require.NoError(t, New(q, workers, zap.NewNop()).Run(context.Background(), specs))
	close(results)

	seen := map[int]bool{}
	for res := range results {
		assert.False(t, seen[res.RowIndex], "row %d delivered twice", res.RowIndex)
		seen[res.RowIndex] = true
		assert.True(t, res.OK)
	}
	assert.Len(t, seen, jobs, "every spec yields exactly one result")
	assert.LessOrEqual(t, peak.Load(), int32(bound), "concurrency bound exceeded")
}

func TestRunStopsWhenContextCancels(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	results := make(chan hdock.JobResult, 1)
	w := worker.New(q, &countingBrowser{active: new(atomic.Int32), peak: new(atomic.Int32)}, results, realClock{}, worker.Config{ServiceURL: "x", SubmitTimeout: time.Second}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(q, []*worker.Worker{w}, zap.NewNop()).Run(ctx, []hdock.JobSpec{{RowIndex: 1}, {RowIndex: 2}})
	require.Error(t, err, "enqueue against a dead context must surface")
}
