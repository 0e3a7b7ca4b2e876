package ir

import "golang.org/x/tools/container/intsets"

// computeDominators runs the classic iterative dataflow once per function.
// Nodes unreachable from the entry dominate only themselves.
func (f *Function) computeDominators() {
	f.domsOnce.Do(func() {
		if len(f.Nodes) == 0 {
			return
		}
		index := make(map[*Node]int, len(f.Nodes))
		for i, n := range f.Nodes {
			index[n] = i
		}
		reachable := reachableFrom(f.Nodes[0])

		doms := make([]intsets.Sparse, len(f.Nodes))
		for i, n := range f.Nodes {
			if i == 0 || !reachable[n] {
				doms[i].Insert(i)
				continue
			}
			for j := range f.Nodes {
				doms[i].Insert(j)
			}
		}

		for changed := true; changed; {
			changed = false
			for i, n := range f.Nodes {
				if i == 0 || !reachable[n] {
					continue
				}
				var next intsets.Sparse
				first := true
				for _, p := range n.Fathers {
					if !reachable[p] {
						continue
					}
					if first {
						next.Copy(&doms[index[p]])
						first = false
					} else {
						next.IntersectionWith(&doms[index[p]])
					}
				}
				next.Insert(i)
				if !next.Equals(&doms[i]) {
					doms[i].Copy(&next)
					changed = true
				}
			}
		}

		for i, n := range f.Nodes {
			for _, j := range doms[i].AppendTo(nil) {
				n.dominators = append(n.dominators, f.Nodes[j])
			}
		}
	})
}

func reachableFrom(entry *Node) map[*Node]bool {
	seen := map[*Node]bool{entry: true}
	stack := []*Node{entry}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range n.Sons {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}
