// Package order arranges messages so that each follows the messages it embeds
// by value, and decides which message fields need a pointer.
package order

import (
	"strings"

	"github.com/jptrs93/pbgen/internal/ir"
)

// SortMessages returns the siblings in dependency order: a message comes after
// every sibling it embeds inline, directly or through its nested messages.
// Otherwise declaration order is kept. Embedding cycles are broken at the
// back edge. Nested message lists are sorted the same way, independently.
func SortMessages(messages []*ir.Message) []*ir.Message {
	for _, msg := range messages {
		msg.Messages = SortMessages(msg.Messages)
	}
	if len(messages) < 2 {
		return messages
	}

	deps := make([][]int, len(messages))
	for i, msg := range messages {
		for _, dep := range msg.InlineDeps() {
			j := sibling(messages, dep)
			if j >= 0 && j != i && !containsInt(deps[i], j) {
				deps[i] = append(deps[i], j)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(messages))
	sorted := make([]*ir.Message, 0, len(messages))
	var visit func(i int)
	visit = func(i int) {
		state[i] = visiting
		for _, j := range deps[i] {
			if state[j] == unvisited {
				visit(j)
			}
		}
		state[i] = done
		sorted = append(sorted, messages[i])
	}
	for i := range messages {
		if state[i] == unvisited {
			visit(i)
		}
	}
	return sorted
}

// sibling returns the index of the sibling that is, or contains, the message
// with the given full name.
func sibling(messages []*ir.Message, fullName string) int {
	for i, msg := range messages {
		name := msg.FullName()
		if fullName == name || strings.HasPrefix(fullName, name+".") {
			return i
		}
	}
	return -1
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
