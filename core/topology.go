package core

import (
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Topology is the connectivity graph of one step. Directed edges run
// from transmitter to receiver for every link that is up.
type Topology struct {
	directed  *simple.DirectedGraph
	symmetric *simple.UndirectedGraph
	size      int
}

// NewTopology builds the graphs for res.
func NewTopology(res *StepResult) *Topology {
	t := &Topology{
		directed:  simple.NewDirectedGraph(),
		symmetric: simple.NewUndirectedGraph(),
		size:      res.Size(),
	}
	for i := 0; i < t.size; i++ {
		t.directed.AddNode(simple.Node(i))
		t.symmetric.AddNode(simple.Node(i))
	}
	for rx, row := range res.Status {
		for tx, s := range row {
			if rx == tx || s != model.LinkUp {
				continue
			}
			t.directed.SetEdge(simple.Edge{F: simple.Node(tx), T: simple.Node(rx)})
			if rx < tx && res.Status[tx][rx] == model.LinkUp {
				t.symmetric.SetEdge(simple.Edge{F: simple.Node(rx), T: simple.Node(tx)})
			}
		}
	}
	return t
}

// Neighbors returns the transmitters node i can hear, in ascending
// order.
func (t *Topology) Neighbors(i int) []int {
	if i < 0 || i >= t.size {
		return nil
	}
	return sortedIDs(graph.NodesOf(t.directed.To(int64(i))))
}

// Components partitions the nodes by bidirectional reachability. Each
// component is sorted and components are ordered by their lowest ID.
func (t *Topology) Components() [][]int {
	cc := topo.ConnectedComponents(t.symmetric)
	out := make([][]int, 0, len(cc))
	for _, c := range cc {
		out = append(out, sortedIDs(c))
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

// Hops returns the fewest directed up-links needed to carry a message
// from src to dst, or -1 when dst is unreachable.
func (t *Topology) Hops(src, dst int) int {
	if src < 0 || src >= t.size || dst < 0 || dst >= t.size {
		return -1
	}
	shortest := path.DijkstraFrom(simple.Node(src), t.directed)
	p, _ := shortest.To(int64(dst))
	if len(p) == 0 {
		return -1
	}
	return len(p) - 1
}

// UpLinks returns the number of directed edges.
func (t *Topology) UpLinks() int { return t.directed.Edges().Len() }

func sortedIDs(nodes []graph.Node) []int {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = int(n.ID())
	}
	slices.Sort(ids)
	return ids
}
