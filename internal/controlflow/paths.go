package controlflow

import (
	"sort"
	"strings"
)

// DeadCode returns the nodes that cannot be reached from the entry. An
// unreachable implicit end is not reported.
func DeadCode(g *Graph) []DeadNode {
	seen := g.reachable(g.Entry)
	seen[g.Entry] = true
	var dead []DeadNode
	for _, n := range g.Nodes {
		if !seen[n.ID] && !n.Synthetic {
			dead = append(dead, DeadNode{NodeID: n.ID, Type: n.Type, StartLine: n.StartLine, EndLine: n.EndLine})
		}
	}
	return dead
}

// reachable returns every node reachable from id in one or more steps. id
// itself is included only when it lies on a cycle.
func (g *Graph) reachable(id string) map[string]bool {
	seen := make(map[string]bool)
	queue := g.Successors(id)
	for _, n := range queue {
		seen[n] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Successors(cur) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// shortestPath returns the node sequence of a shortest path from one node to
// another, or nil when there is none.
func (g *Graph) shortestPath(from, to string) []string {
	if from == to {
		return []string{from}
	}
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Successors(cur) {
			if _, ok := prev[next]; ok {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []string
				for n := to; n != ""; n = prev[n] {
					path = append([]string{n}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// HotPaths enumerates simple entry-to-exit paths, visiting at most maxPaths,
// and returns the limit most probable. Paths over the same node sequence are
// merged and their probabilities summed.
func HotPaths(g *Graph, maxPaths, limit int) []HotPath {
	var (
		found   []HotPath
		byKey   = make(map[string]int)
		path    []string
		visited = make(map[string]bool)
		count   int
	)

	var walk func(id string, prob float64)
	walk = func(id string, prob float64) {
		if count >= maxPaths {
			return
		}
		path = append(path, id)
		visited[id] = true
		defer func() {
			path = path[:len(path)-1]
			visited[id] = false
		}()

		if n, ok := g.Node(id); ok && n.Type == NodeExit {
			count++
			key := strings.Join(path, ">")
			if i, ok := byKey[key]; ok {
				found[i].Probability += prob
				return
			}
			byKey[key] = len(found)
			found = append(found, HotPath{Nodes: append([]string(nil), path...), Probability: prob})
			return
		}
		for _, e := range g.Outgoing(id) {
			if !visited[e.To] {
				walk(e.To, prob*e.Probability)
			}
		}
	}
	walk(g.Entry, 1)

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Probability != found[j].Probability {
			return found[i].Probability > found[j].Probability
		}
		return len(found[i].Nodes) < len(found[j].Nodes)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}
