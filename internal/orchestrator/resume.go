package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperifyio/veritas/internal/citations"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

// RunResume continues a checkpointed Flat-mode run from its remaining points
// (spec §4.7, §6 /research/resume, testable property S4): it runs
// cp.RemainingPoints sequentially and ends with a Flat-style Final Synthesis,
// whatever cp.Mode says. Checkpoints written by RunAcademic record neither
// completed dossiers nor remaining points, so resuming one runs no points.
func (o *Orchestrator) RunResume(ctx context.Context, sessionID string) error {
	if o.Checkpoints == nil {
		return fmt.Errorf("orchestrator: no checkpoint store configured")
	}
	cp, ok, err := o.Checkpoints.Load(sessionID)
	if err != nil {
		return fmt.Errorf("orchestrator: loading checkpoint: %w", err)
	}
	if !ok {
		return fmt.Errorf("orchestrator: unknown session %q", sessionID)
	}

	start := time.Now()
	o.emit(sessionID, events.TypeStatus, statustext.Resuming(o.Language, len(cp.RemainingPoints)), nil)

	// Citation Registry is not persisted (spec §3); resuming starts a fresh
	// registry rather than continuing the old one's numbering (spec §4.7:
	// "Citation Registry starts fresh ... cross-run renumbering is not
	// reconciled — tradeoff for simplicity"). Already-completed dossiers
	// keep whatever global numbers they were given in the original run.
	registry := citations.New()
	loop := o.newLoop(registry)

	dossiers := append([]session.Dossier(nil), cp.CompletedDossiers...)
	startIndex := len(cp.ResearchPlan.AllPoints()) - len(cp.RemainingPoints) + 1
	learnings := cp.AccumulatedLearning
	learnings = o.runPointsSequential(ctx, sessionID, cp.RemainingPoints, startIndex, loop, learnings, func(idx int, d session.Dossier) {
		dossiers = append(dossiers, d)
		if !d.Skipped && d.KeyLearnings != "" {
			if learnings != "" {
				learnings += "\n"
			}
			learnings += d.KeyLearnings
		}
		o.checkpoint(session.Checkpoint{
			SessionID:           sessionID,
			UserQuery:           cp.UserQuery,
			Mode:                cp.Mode,
			Language:            cp.Language,
			ResearchPlan:        cp.ResearchPlan,
			CompletedDossiers:   dossiers,
			AccumulatedLearning: learnings,
			RemainingPoints:     cp.ResearchPlan.AllPoints()[idx:],
			SourceRegistry:      registry.URLs(),
			Status:              fmt.Sprintf("dossier_%d_complete", idx),
		})
	})

	o.emit(sessionID, events.TypeSynthesisStart, "", nil)
	finalDoc := o.buildFlatFinalDocument(ctx, sessionID, cp.UserQuery, cp.ResearchPlan.AllPoints(), dossiers)
	finalDoc = o.finalizeDocument(sessionID, finalDoc, registry.Len(), registry.URLs())

	o.checkpoint(session.Checkpoint{
		SessionID:           sessionID,
		UserQuery:           cp.UserQuery,
		Mode:                cp.Mode,
		Language:            cp.Language,
		ResearchPlan:        cp.ResearchPlan,
		CompletedDossiers:   dossiers,
		AccumulatedLearning: learnings,
		SourceRegistry:      registry.URLs(),
		Status:              "done",
	})

	o.emit(sessionID, events.TypeDone, "", map[string]any{
		"final_document":   finalDoc,
		"total_points":     len(cp.ResearchPlan.AllPoints()),
		"total_sources":    registry.Len(),
		"duration_seconds": time.Since(start).Seconds(),
		"source_registry":  registry.URLs(),
	})
	return nil
}
