package pathfind

import (
	"container/heap"
	"sort"
)

// OriginID is the synthetic node representing "owns nothing", the start
// of every purchase path. No real ship ever has id 0.
const OriginID uint = 0

type edge struct {
	to     uint
	weight float64
}

type adjacency map[uint][]edge

func (a adjacency) add(from, to uint, weight float64) {
	a[from] = append(a[from], edge{to: to, weight: weight})
}

// sortEdges fixes the iteration order so tie-breaks between equal-cost
// routes are deterministic.
func (a adjacency) sortEdges() {
	for _, edges := range a {
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].to != edges[j].to {
				return edges[i].to < edges[j].to
			}
			return edges[i].weight < edges[j].weight
		})
	}
}

type queueItem struct {
	node uint
	dist float64
	idx  int
}

type queue []*queueItem

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	// Equal distances settle in node-id order for determinism.
	return q[i].node < q[j].node
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].idx = i
	q[j].idx = j
}

func (q *queue) Push(x any) {
	item := x.(*queueItem)
	item.idx = len(*q)
	*q = append(*q, item)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// prevHop remembers which edge relaxed a node. Carrying the edge's own
// weight keeps hop costs exact; recomputing them as distance
// differences would reintroduce float addition error.
type prevHop struct {
	node   uint
	weight float64
}

// shortestPath runs Dijkstra from source and returns the node sequence
// to target plus the exact per-hop edge weights (hops[i] is the cost of
// path[i] to path[i+1]), or ok=false when target is unreachable. Edge
// weights are non-negative prices.
func shortestPath(adj adjacency, source, target uint) (path []uint, hops []float64, ok bool) {
	dist := map[uint]float64{source: 0}
	prev := map[uint]prevHop{}
	settled := map[uint]struct{}{}

	q := &queue{}
	heap.Init(q)
	heap.Push(q, &queueItem{node: source, dist: 0})

	for q.Len() > 0 {
		item := heap.Pop(q).(*queueItem)
		if _, done := settled[item.node]; done {
			continue
		}
		settled[item.node] = struct{}{}
		if item.node == target {
			break
		}
		for _, e := range adj[item.node] {
			next := item.dist + e.weight
			if current, seen := dist[e.to]; !seen || next < current {
				dist[e.to] = next
				prev[e.to] = prevHop{node: item.node, weight: e.weight}
				heap.Push(q, &queueItem{node: e.to, dist: next})
			}
		}
	}

	if _, reached := settled[target]; !reached {
		return nil, nil, false
	}
	for node := target; node != source; {
		hop := prev[node]
		path = append([]uint{node}, path...)
		hops = append([]float64{hop.weight}, hops...)
		node = hop.node
	}
	path = append([]uint{source}, path...)
	return path, hops, true
}
