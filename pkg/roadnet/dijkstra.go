package roadnet

import (
	"container/heap"
	"math"
)

// Path is a shortest path through the network: the node sequence, the
// traversed edges, and the total effective weight.
type Path struct {
	Nodes  []NodeKey
	Edges  []*Edge
	Weight float64
}

// pqItem is a heap entry keyed by tentative distance. Stale entries are
// skipped on pop instead of decreased in place.
type pqItem struct {
	node NodeKey
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra over effective edge weights from src to
// dst. Edges with infinite weight are never relaxed, so closed roads are
// excluded. Returns false when dst is unreachable.
func (n *Network) ShortestPath(src, dst NodeKey) (Path, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if _, ok := n.nodes[src]; !ok {
		return Path{}, false
	}
	if _, ok := n.nodes[dst]; !ok {
		return Path{}, false
	}

	dist := map[NodeKey]float64{src: 0}
	prevEdge := map[NodeKey]*Edge{}
	done := map[NodeKey]bool{}

	pq := &priorityQueue{{node: src, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if done[cur.node] {
			continue
		}
		done[cur.node] = true
		if cur.node == dst {
			break
		}

		for _, e := range n.adj[cur.node] {
			w := e.Weight()
			if math.IsInf(w, 1) {
				continue
			}
			next := cur.dist + w
			if old, seen := dist[e.To]; !seen || next < old {
				dist[e.To] = next
				prevEdge[e.To] = e
				heap.Push(pq, pqItem{node: e.To, dist: next})
			}
		}
	}

	total, reached := dist[dst]
	if !reached || !done[dst] {
		return Path{}, false
	}

	var edges []*Edge
	for at := dst; at != src; {
		e := prevEdge[at]
		edges = append(edges, e)
		at = e.From
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	nodes := make([]NodeKey, 0, len(edges)+1)
	nodes = append(nodes, src)
	for _, e := range edges {
		nodes = append(nodes, e.To)
	}

	return Path{Nodes: nodes, Edges: edges, Weight: total}, true
}
