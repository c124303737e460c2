// Package orchestrator implements the three top-level research flows (Flat,
// Academic, Ask) plus the Setup Pipeline (spec §4.8, §4.9). Each mode derives
// a session id, opens its event stream, and owns all side effects; the
// Worker Loop and leaf components stay pure with respect to session state.
//
// Go's goroutine model satisfies spec §5's "long-blocking LLM calls must be
// offloaded to a worker thread so the cooperative loop keeps delivering
// events" requirement for free: the HTTP layer runs each orchestrator call in
// its own goroutine while a separate goroutine drains the Event Bus for the
// same session id, so a blocking Final Synthesis/Conclusion call never stalls
// event delivery. No explicit thread hand-off is needed the way it would be
// in a single-threaded cooperative runtime.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/veritas/internal/citations"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/llm"
	"github.com/hyperifyio/veritas/internal/report"
	"github.com/hyperifyio/veritas/internal/scrape"
	"github.com/hyperifyio/veritas/internal/search"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/worker"
)

// Timeouts for the long synthesis calls (spec §4.8, §5).
const (
	FinalSynthesisTimeout    = 20 * time.Minute
	FinalSynthesisMaxTokens  = 32000
	AreaSynthesisTimeout     = 180 * time.Second
	AreaSynthesisMaxTokens   = 48000
	ConclusionTimeout        = 5 * time.Minute
	ConclusionMaxTokens      = 96000
)

// PointCompleteSettleDelay is the small sleep after each point_complete and
// before synthesis_start (spec §5: "explicit small sleep (>=0.1-0.3s)").
const PointCompleteSettleDelay = 200 * time.Millisecond

// Orchestrator bundles the shared infrastructure every mode needs.
type Orchestrator struct {
	Bus         *events.Bus
	Checkpoints *session.Store
	Search      search.Provider
	Scraper     scrape.Scraper
	Gateway     llm.Gateway
	WorkModel   string
	FinalModel  string
	Language    string

	// BackupDir, when set, receives a timestamped Markdown copy of each
	// final document (spec §4.8, §6: "final_synthesis_backups/",
	// "academic_synthesis_backups/"). Empty disables backups.
	BackupDir string

	// PDFExport additionally renders a PDF copy of each final document into
	// BackupDir. No effect if BackupDir is empty.
	PDFExport bool

	// LogRing, when set, is drained into a "log" envelope after each
	// blocking LLM call and before each done envelope (spec §7: "flushed
	// into the event stream as log envelopes at well-defined points").
	// Nil disables log-envelope emission entirely.
	LogRing *events.LogRing

	// sleepFn is overridable in tests so they don't pay the real settle delay.
	sleepFn func(time.Duration)
	// nowFn is overridable in tests for deterministic backup filenames.
	nowFn func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.nowFn != nil {
		return o.nowFn()
	}
	return time.Now()
}

// finalizeDocument appends the reproducibility footer and source manifest to
// a final document and, if BackupDir is set, writes a timestamped backup
// copy (spec §4.8's "write a timestamped backup file on success").
func (o *Orchestrator) finalizeDocument(sessionID, doc string, sourceCount int, urls map[int]string) string {
	meta := report.Meta{Model: o.FinalModel, LLMBaseURL: "", SourceCount: sourceCount, GeneratedAt: o.now()}
	doc = report.AppendManifest(doc, meta, urls)
	doc = report.AppendFooter(doc, meta)
	if o.BackupDir != "" {
		if _, err := report.WriteBackup(o.BackupDir, sessionID, doc, o.now()); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to write synthesis backup")
		}
		if o.PDFExport {
			if _, err := report.WritePDF(o.BackupDir, sessionID, doc, o.now()); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to write synthesis PDF")
			}
		}
	}
	return doc
}

func (o *Orchestrator) sleep(d time.Duration) {
	if o.sleepFn != nil {
		o.sleepFn(d)
		return
	}
	time.Sleep(d)
}

func (o *Orchestrator) newLoop(registry *citations.Registry) *worker.Loop {
	return &worker.Loop{
		Search:    o.Search,
		Scraper:   o.Scraper,
		Gateway:   o.Gateway,
		Registry:  registry,
		Bus:       o.Bus,
		WorkModel: o.WorkModel,
		Language:  o.Language,
		LogRing:   o.LogRing,
	}
}

func (o *Orchestrator) emit(sessionID string, t events.Type, msg string, data any) {
	if t == events.TypeDone {
		o.flushLog(sessionID)
	}
	o.Bus.Emit(sessionID, events.Envelope{Type: t, Message: msg, Data: data})
}

// flushLog drains LogRing, if set, into a "log" envelope for sessionID.
func (o *Orchestrator) flushLog(sessionID string) {
	lines := o.LogRing.Drain()
	if lines == nil {
		return
	}
	o.Bus.Emit(sessionID, events.Envelope{Type: events.TypeLog, Data: map[string]any{"lines": lines}})
}

func (o *Orchestrator) emitError(sessionID string, err error) {
	o.emit(sessionID, events.TypeError, llm.SanitizeForDisplay(err), nil)
}

func (o *Orchestrator) checkpoint(cp session.Checkpoint) {
	if o.Checkpoints == nil {
		return
	}
	_ = o.Checkpoints.Save(cp)
}

// callSynthesis runs a long-blocking LLM call with its own timeout, wrapping
// errors as a generic failure the caller can fall back on (spec §4.4: gateway
// failures never echoed verbatim, spec §4.8: fall back to concatenation).
func (o *Orchestrator) callSynthesis(ctx context.Context, sessionID, system, user string, timeout time.Duration, maxTokens int) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := o.Gateway.Complete(cctx, o.FinalModel, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, llm.Options{Timeout: timeout, MaxTokens: maxTokens})
	o.flushLog(sessionID)
	if err != nil {
		return "", err
	}
	if resp.Content == "" {
		return "", fmt.Errorf("orchestrator: empty synthesis response")
	}
	return resp.Content, nil
}

// runPointsSequential runs the Worker Loop over points in order, accumulating
// learnings and calling onDossier after each (Flat and Resume checkpoint
// there), shared by Flat, Resume and per-area Academic processing (spec §4.6
// step 14, §4.7).
func (o *Orchestrator) runPointsSequential(ctx context.Context, sessionID string, points []string, startIndex int, loop *worker.Loop, learnings string, onDossier func(int, session.Dossier)) string {
	for i, p := range points {
		res := loop.RunPoint(ctx, sessionID, startIndex+i, p, learnings)
		if res.KeyLearnings != "" && !res.Dossier.Skipped {
			if learnings != "" {
				learnings += "\n"
			}
			learnings += res.KeyLearnings
		}
		onDossier(startIndex+i, res.Dossier)
		o.sleep(PointCompleteSettleDelay)
	}
	return learnings
}
