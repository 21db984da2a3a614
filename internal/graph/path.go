package graph

import "container/heap"

// PathInfo is the result of a constrained shortest-path search.
type PathInfo struct {
	WalkTime      float64
	MaxDifficulty int // hardest single edge on the returned path
}

// pathState is a tentative arrival at a node.
type pathState struct {
	id            string
	time          float64
	maxDifficulty int
	seq           int
}

// stateQueue orders states by accumulated time, then by insertion order.
type stateQueue []pathState

func (q stateQueue) Len() int { return len(q) }

func (q stateQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}

func (q stateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *stateQueue) Push(x any) { *q = append(*q, x.(pathState)) }

func (q *stateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ShortestPath returns the minimum walking time from one location to another
// using only connections with difficulty <= maxDifficulty. The second return
// value is false when no such path exists.
//
// States are expanded lazily: every relaxation pushes a new state and the first
// state popped for a node settles it. Equal-time states settle in the order
// they were pushed.
func (s *Site) ShortestPath(from, to string, maxDifficulty int) (PathInfo, bool) {
	if _, ok := s.index[from]; !ok {
		return PathInfo{}, false
	}
	if _, ok := s.index[to]; !ok {
		return PathInfo{}, false
	}
	if from == to {
		return PathInfo{}, true
	}

	settled := make(map[string]bool, len(s.locations))
	q := &stateQueue{{id: from}}
	seq := 1

	for q.Len() > 0 {
		cur := heap.Pop(q).(pathState)
		if cur.id == to {
			return PathInfo{WalkTime: cur.time, MaxDifficulty: cur.maxDifficulty}, true
		}
		if settled[cur.id] {
			continue
		}
		settled[cur.id] = true

		for _, a := range s.adjacency[cur.id] {
			if a.difficulty > maxDifficulty || settled[a.to] {
				continue
			}
			heap.Push(q, pathState{
				id:            a.to,
				time:          cur.time + a.walkTime,
				maxDifficulty: max(cur.maxDifficulty, a.difficulty),
				seq:           seq,
			})
			seq++
		}
	}

	return PathInfo{}, false
}

// Reachable returns the ids of locations reachable from start under the
// difficulty ceiling, in authoring order. start itself is always included.
func (s *Site) Reachable(start string, maxDifficulty int) []string {
	if _, ok := s.index[start]; !ok {
		return nil
	}

	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range s.adjacency[cur] {
			if a.difficulty <= maxDifficulty && !seen[a.to] {
				seen[a.to] = true
				queue = append(queue, a.to)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, loc := range s.locations {
		if seen[loc.ID] {
			out = append(out, loc.ID)
		}
	}
	return out
}
