package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperifyio/veritas/internal/citations"
	"github.com/hyperifyio/veritas/internal/events"
	"github.com/hyperifyio/veritas/internal/prompts"
	"github.com/hyperifyio/veritas/internal/session"
	"github.com/hyperifyio/veritas/internal/statustext"
)

// RunAcademic executes the Academic mode (spec §4.8): per area, a scoped
// Worker Loop pass followed by an Area Synthesis call, then a final
// Conclusion call across all area syntheses.
func (o *Orchestrator) RunAcademic(ctx context.Context, userQuery string, areas []session.Area) {
	start := time.Now()
	var allPoints []string
	for _, a := range areas {
		allPoints = append(allPoints, a.Points...)
	}
	sessionID := session.NewID(userQuery, allPoints)
	o.emit(sessionID, events.TypeStatus, statustext.StartingAreas(o.Language, len(areas)), nil)
	o.emit(sessionID, events.TypeSessionID, "", map[string]any{"session_id": sessionID})

	registry := citations.New()
	var results []session.AreaResult
	pointCounter := 1

	for _, area := range areas {
		o.emit(sessionID, events.TypeBereichStart, area.Title, nil)
		loop := o.newLoop(registry)

		var dossiers []session.Dossier
		areaLearnings := ""
		startIndex := pointCounter
		areaLearnings = o.runPointsSequential(ctx, sessionID, area.Points, startIndex, loop, areaLearnings, func(idx int, d session.Dossier) {
			dossiers = append(dossiers, d)
		})
		pointCounter += len(area.Points)

		bodies := dossierBodies(dossiers)
		var synthesis string
		if len(bodies) > 0 {
			system, user := prompts.BuildAreaSynthesis(area.Title, bodies, o.Language)
			doc, err := o.callSynthesis(ctx, sessionID, system, user, AreaSynthesisTimeout, AreaSynthesisMaxTokens)
			if err != nil {
				synthesis = prompts.ConcatFallback(area.Title, bodies)
			} else {
				synthesis = doc
			}
		}

		results = append(results, session.AreaResult{
			Title:     area.Title,
			Synthesis: synthesis,
			Sources:   areaSources(dossiers),
			Dossiers:  dossiers,
		})
		o.checkpoint(session.Checkpoint{
			SessionID:      sessionID,
			UserQuery:      userQuery,
			Mode:           session.ModeAcademic,
			ResearchPlan:   session.Plan{Areas: areas},
			SourceRegistry: registry.URLs(),
			Status:         fmt.Sprintf("area_%s_complete", area.Title),
		})
		o.emit(sessionID, events.TypeBereichComplete, area.Title, map[string]any{
			"bereich_titel": area.Title,
			"synthese":      synthesis,
			"sources":       areaSources(dossiers),
		})
		// areaLearnings is scoped to this area only and never carried into the
		// next area's Worker Loop (spec §4.6 step 12).
	}

	o.emit(sessionID, events.TypeMetaSynthesisStart, "", nil)
	areaSyntheses := make([]string, 0, len(results))
	for _, r := range results {
		if r.Synthesis != "" {
			areaSyntheses = append(areaSyntheses, r.Synthesis)
		}
	}
	system, user := prompts.BuildConclusion(userQuery, areaSyntheses, o.Language)
	conclusion, err := o.callSynthesis(ctx, sessionID, system, user, ConclusionTimeout, ConclusionMaxTokens)
	if err != nil {
		conclusion = statustext.ConclusionUnavailable(o.Language)
	}

	legacyDoc := prompts.ConcatFallback("Research Result", areaSyntheses)
	legacyDoc = o.finalizeDocument(sessionID, legacyDoc, registry.Len(), registry.URLs())

	o.checkpoint(session.Checkpoint{
		SessionID:      sessionID,
		UserQuery:      userQuery,
		Mode:           session.ModeAcademic,
		SourceRegistry: registry.URLs(),
		Status:         "done",
	})

	o.emit(sessionID, events.TypeDone, "", map[string]any{
		"syntheses":        results,
		"conclusion":       conclusion,
		"final_document":   legacyDoc,
		"total_points":     len(allPoints),
		"total_sources":    registry.Len(),
		"duration_seconds": time.Since(start).Seconds(),
		"source_registry":  registry.URLs(),
	})
}

func areaSources(dossiers []session.Dossier) []string {
	var out []string
	for _, d := range dossiers {
		out = append(out, d.Sources...)
	}
	return out
}
