package httpapi

import (
	"encoding/base64"
	"encoding/json"

	"github.com/hyperifyio/veritas/internal/session"
)

// planContext is the opaque "context_state" the setup pipeline hands between
// /research/overview, /research/plan(/revise), and /research/deep (spec §6).
// The HTTP surface is explicitly out of scope for persistence guarantees
// beyond one session's checkpoint (spec §1 non-goals: "no guaranteed global
// consistency"), so context_state round-trips through the client rather than
// being kept server-side: it is the setup pipeline's accumulated state,
// base64-encoded JSON, opaque to the caller by convention (not by
// cryptographic sealing — this is a local-only, single-user service).
type planContext struct {
	UserQuery              string       `json:"user_query"`
	ClarificationQuestions []string     `json:"clarification_questions,omitempty"`
	ClarificationAnswers   []string     `json:"clarification_answers,omitempty"`
	AcademicMode           bool         `json:"academic_mode"`
	Plan                   session.Plan `json:"plan"`
}

func encodeContextState(c planContext) string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

func decodeContextState(s string) (planContext, error) {
	var c planContext
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// clarificationQAs flattens paired questions/answers into the
// "Q: ...\nA: ..." strings the plan prompt builders expect.
func clarificationQAs(questions, answers []string) []string {
	out := make([]string, 0, len(questions))
	for i, q := range questions {
		a := ""
		if i < len(answers) {
			a = answers[i]
		}
		out = append(out, "Q: "+q+"\nA: "+a)
	}
	return out
}
