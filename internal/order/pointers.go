package order

import (
	"github.com/jptrs93/pbgen/internal/ir"
)

// MarkIndirections sets Pointer on every singular, non-oneof message field
// that lies on a cycle of the inline embedding graph or is declared optional,
// or on all of them when all is set. Fields must be resolved. The graph spans every message of the
// given files so cycles through imports are found too.
func MarkIndirections(files []*ir.File, all bool) {
	g := &graph{index: make(map[string]int)}
	for _, file := range files {
		for _, msg := range file.Messages {
			g.addMessage(msg)
		}
	}
	for _, n := range g.nodes {
		for _, f := range n.msg.Fields {
			if candidate(f) {
				if j, ok := g.index[f.FullType()]; ok {
					n.edges = append(n.edges, j)
				}
			}
		}
	}
	component := g.components()

	for i, n := range g.nodes {
		for _, f := range n.msg.Fields {
			if !candidate(f) {
				continue
			}
			j, ok := g.index[f.FullType()]
			f.Pointer = all || f.Optional || (ok && component[i] == component[j])
		}
	}
}

func candidate(f *ir.Field) bool {
	return f.TypeKind == ir.TypeMessage && !f.Repeated && f.Oneof == nil
}

type node struct {
	msg   *ir.Message
	edges []int
}

type graph struct {
	nodes []*node
	index map[string]int
}

func (g *graph) addMessage(msg *ir.Message) {
	name := msg.FullName()
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, &node{msg: msg})
	for _, sub := range msg.Messages {
		g.addMessage(sub)
	}
}

// components labels every node with its strongly connected component using
// Tarjan's algorithm.
func (g *graph) components() []int {
	n := len(g.nodes)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	component := make([]int, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next, count := 0, 0

	var connect func(v int)
	connect = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.nodes[v].edges {
			if index[w] < 0 {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component[w] = count
			if w == v {
				break
			}
		}
		count++
	}
	for v := range g.nodes {
		if index[v] < 0 {
			connect(v)
		}
	}
	return component
}
