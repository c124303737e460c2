// Package citations implements the per-run Citation Registry: a monotonic
// global index -> URL map that renumbers locally-numbered dossier citations
// into a single run-wide numbering.
package citations

import (
	"regexp"
	"strconv"
)

var tokenRe = regexp.MustCompile(`\[(\d+)\]`)

// Registry owns next_global and the global_index -> URL map for one
// orchestrator run. It is not persisted; only the renumbered dossier text
// survives across a run.
type Registry struct {
	nextGlobal int
	urls       map[int]string
}

// New returns an empty Registry with next_global starting at 1.
func New() *Registry {
	return &Registry{nextGlobal: 1, urls: make(map[int]string)}
}

// URLs returns a snapshot of the global_index -> url map.
func (r *Registry) URLs() map[int]string {
	out := make(map[int]string, len(r.urls))
	for k, v := range r.urls {
		out[k] = v
	}
	return out
}

// Len returns how many global indices have been assigned so far.
func (r *Registry) Len() int { return r.nextGlobal - 1 }

// Renumber rewrites every [N] token in text using the dossier's local
// local_citations mapping (local index -> URL), assigning each distinct
// local N a fresh global index in ascending order of first appearance, and
// rewriting all tokens in a single scan so that no rewritten token is
// rewritten again (spec §4.2 steps 1-4). It returns the rewritten
// text and the local->global mapping actually used, so callers can apply the
// same mapping to a companion string (e.g. key_learnings).
func (r *Registry) Renumber(text string, localURLs map[int]string) (string, map[int]int) {
	locals := distinctLocalsInOrder(text)
	mapping := make(map[int]int, len(locals))
	for _, n := range locals {
		global := r.nextGlobal
		r.nextGlobal++
		mapping[n] = global
		if url, ok := localURLs[n]; ok {
			r.urls[global] = url
		}
		// else: token renumbered anyway, no URL recorded -> gap (spec §4.2 invariant).
	}
	return applyMapping(text, mapping), mapping
}

// ApplyMapping rewrites text using a mapping already computed by Renumber,
// so key_learnings carries the same global indices as the dossier body.
func ApplyMapping(text string, mapping map[int]int) string {
	return applyMapping(text, mapping)
}

func distinctLocalsInOrder(text string) []int {
	seen := map[int]bool{}
	var order []int
	for _, m := range tokenRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !seen[n] {
			seen[n] = true
			order = append(order, n)
		}
	}
	return order
}

// applyMapping rewrites every mapped [N] token in one left-to-right scan of
// the original text, so that e.g. renumbering [1]->[12] and [12]->[1] in the
// same pass never collides. Tokens with no entry in mapping are left as is.
func applyMapping(text string, mapping map[int]int) string {
	if len(mapping) == 0 {
		return text
	}
	return tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		n, err := strconv.Atoi(tok[1 : len(tok)-1])
		if err != nil {
			return tok
		}
		if g, ok := mapping[n]; ok {
			return "[" + strconv.Itoa(g) + "]"
		}
		return tok
	})
}
