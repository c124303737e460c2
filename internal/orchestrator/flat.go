package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/veritas/internal/citations"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/prompts"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

// RunFlat executes the Flat Deep Research mode (spec §4.8): one Worker Loop
// pass per point in order, learnings accumulating across the whole run,
// followed by a single Final Synthesis call with a concatenation fallback.
func (o *Orchestrator) RunFlat(ctx context.Context, userQuery string, plan []string) {
	start := time.Now()
	sessionID := session.NewID(userQuery, plan)
	o.emit(sessionID, events.TypeStatus, statustext.Starting(o.Language, len(plan)), nil)
	o.emit(sessionID, events.TypeSessionID, "", map[string]any{"session_id": sessionID})

	registry := citations.New()
	loop := o.newLoop(registry)

	var dossiers []session.Dossier
	learnings := ""
	learnings = o.runPointsSequential(ctx, sessionID, plan, 1, loop, learnings, func(idx int, d session.Dossier) {
		dossiers = append(dossiers, d)
		if !d.Skipped && d.KeyLearnings != "" {
			if learnings != "" {
				learnings += "\n"
			}
			learnings += d.KeyLearnings
		}
		o.checkpoint(session.Checkpoint{
			SessionID:           sessionID,
			UserQuery:           userQuery,
			Mode:                session.ModeFlat,
			ResearchPlan:        session.Plan{Points: plan},
			CompletedDossiers:   dossiers,
			AccumulatedLearning: learnings,
			RemainingPoints:     plan[idx:],
			SourceRegistry:      registry.URLs(),
			Status:              fmt.Sprintf("dossier_%d_complete", idx),
		})
	})

	o.emit(sessionID, events.TypeSynthesisStart, "", nil)
	finalDoc := o.buildFlatFinalDocument(ctx, sessionID, userQuery, plan, dossiers)
	finalDoc = o.finalizeDocument(sessionID, finalDoc, registry.Len(), registry.URLs())

	o.checkpoint(session.Checkpoint{
		SessionID:           sessionID,
		UserQuery:           userQuery,
		Mode:                session.ModeFlat,
		ResearchPlan:        session.Plan{Points: plan},
		CompletedDossiers:   dossiers,
		AccumulatedLearning: learnings,
		SourceRegistry:      registry.URLs(),
		Status:              "done",
	})

	o.emit(sessionID, events.TypeDone, "", map[string]any{
		"final_document":   finalDoc,
		"total_points":     len(plan),
		"total_sources":    registry.Len(),
		"duration_seconds": time.Since(start).Seconds(),
		"source_registry":  registry.URLs(),
	})
}

func (o *Orchestrator) buildFlatFinalDocument(ctx context.Context, sessionID, userQuery string, plan []string, dossiers []session.Dossier) string {
	bodies := dossierBodies(dossiers)
	system, user := prompts.BuildFinalSynthesis(userQuery, plan, bodies, o.Language)
	doc, err := o.callSynthesis(ctx, sessionID, system, user, FinalSynthesisTimeout, FinalSynthesisMaxTokens)
	if err != nil {
		return prompts.ConcatFallback("Research Result", bodies)
	}
	return doc
}

func dossierBodies(dossiers []session.Dossier) []string {
	out := make([]string, 0, len(dossiers))
	for _, d := range dossiers {
		if d.Skipped {
			continue
		}
		out = append(out, strings.TrimSpace(d.Body))
	}
	return out
}
