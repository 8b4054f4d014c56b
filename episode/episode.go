// Package episode links the steps of a multi-step episode into a forest.
//
// Each step names its parent by previous id. Resolution is independent of
// the order steps arrive in: siblings are ordered by timestamp, then by
// event id.
package episode

import (
	"cmp"
	"slices"
	"time"

	"github.com/pithecene-io/joinery/types"
)

// Step is one step of an episode as seen by the resolver.
type Step struct {
	EventID    string
	PreviousID *string
	Timestamp  time.Time
	// Event is the decoded step, carried through for consumers.
	Event *types.Event
}

// Outcome is an observation attached to a step.
type Outcome struct {
	Payload    *types.OutcomePayload
	ClientTime time.Time
	JoinTime   time.Time
	// Seq is the arrival position, used to break timestamp ties.
	Seq int
}

// Node is a step placed in its forest.
type Node struct {
	Step
	Parent   *Node
	Children []*Node
	// Depth is 0 for roots.
	Depth    int
	Outcomes []Outcome
}

// Forest is a resolved episode.
type Forest struct {
	EpisodeID string
	Roots     []*Node
	byID      map[string]*Node
}

// Resolve links steps into a forest. Steps may be given in any order.
//
// Errors:
//   - *DuplicateStepError: two steps share an event id
//   - *DanglingReferenceError: a previous id never matches, or a cycle
func Resolve(episodeID string, steps []Step) (*Forest, error) {
	f := &Forest{EpisodeID: episodeID, byID: make(map[string]*Node, len(steps))}

	nodes := make([]*Node, 0, len(steps))
	for _, s := range steps {
		if _, ok := f.byID[s.EventID]; ok {
			return nil, &DuplicateStepError{EpisodeID: episodeID, EventID: s.EventID}
		}
		n := &Node{Step: s}
		f.byID[s.EventID] = n
		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		if n.PreviousID == nil {
			f.Roots = append(f.Roots, n)
			continue
		}
		parent, ok := f.byID[*n.PreviousID]
		if !ok {
			return nil, &DanglingReferenceError{EpisodeID: episodeID, EventID: n.EventID, PreviousID: *n.PreviousID}
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}

	sortNodes(f.Roots)
	reached := 0
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		reached++
		n.Depth = depth
		sortNodes(n.Children)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range f.Roots {
		walk(r, 0)
	}

	if reached != len(nodes) {
		for _, n := range nodes {
			if n.Parent != nil && !f.reachable(n) {
				return nil, &DanglingReferenceError{
					EpisodeID:  episodeID,
					EventID:    n.EventID,
					PreviousID: *n.PreviousID,
					Cycle:      true,
				}
			}
		}
	}
	return f, nil
}

func sortNodes(nodes []*Node) {
	slices.SortFunc(nodes, func(a, b *Node) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.EventID, b.EventID)
	})
}

// reachable walks parent links; a cycle never reaches a root.
func (f *Forest) reachable(n *Node) bool {
	seen := make(map[*Node]struct{})
	for cur := n; cur != nil; cur = cur.Parent {
		if _, ok := seen[cur]; ok {
			return false
		}
		seen[cur] = struct{}{}
		if cur.PreviousID == nil {
			return true
		}
	}
	return false
}

// Len returns the number of steps.
func (f *Forest) Len() int {
	return len(f.byID)
}

// Step returns the node for an event id.
func (f *Forest) Step(eventID string) (*Node, bool) {
	n, ok := f.byID[eventID]
	return n, ok
}

// Order returns every step with parents before children. Siblings follow
// timestamp order.
func (f *Forest) Order() []*Node {
	out := make([]*Node, 0, len(f.byID))
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range f.Roots {
		walk(r)
	}
	return out
}

// Attach places an outcome on the forest. An indexed outcome goes to the
// step whose event id equals the index (numeric indices compare in
// decimal). An outcome without an index applies to the episode as a whole
// and is attached to every root. Attach returns false when the index
// matches no step.
func (f *Forest) Attach(o Outcome) bool {
	if o.Payload.Index == nil {
		for _, r := range f.Roots {
			r.Outcomes = append(r.Outcomes, o)
		}
		return len(f.Roots) > 0
	}
	n, ok := f.byID[o.Payload.Index.String()]
	if !ok {
		return false
	}
	n.Outcomes = append(n.Outcomes, o)
	return true
}
