package order

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jptrs93/pbgen/internal/ir"
)

func msg(name string, namespace ...string) *ir.Message {
	return &ir.Message{Name: name, Namespace: namespace}
}

// embed adds a singular message field on m referring to target.
func embed(m, target *ir.Message) *ir.Field {
	f := &ir.Field{
		Type:      target.Name,
		Name:      fmt.Sprintf("f%d", len(m.Fields)+1),
		Number:    len(m.Fields) + 1,
		Namespace: target.Namespace,
		TypeKind:  ir.TypeMessage,
		Kind:      ir.KindMessage,
	}
	m.Fields = append(m.Fields, f)
	return f
}

func names(messages []*ir.Message) []string {
	var out []string
	for _, m := range messages {
		out = append(out, m.Name)
	}
	return out
}

func TestSortMessagesDependenciesFirst(t *testing.T) {
	a, b, c, d := msg("A"), msg("B"), msg("C"), msg("D")
	embed(a, c)
	embed(c, d)
	embed(b, a)
	got := SortMessages([]*ir.Message{a, b, c, d})
	assert.Equal(t, []string{"D", "C", "A", "B"}, names(got))
}

func TestSortMessagesKeepsDeclarationOrder(t *testing.T) {
	a, b, c := msg("A"), msg("B"), msg("C")
	got := SortMessages([]*ir.Message{a, b, c})
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
}

func TestSortMessagesIgnoresRepeatedAndPointers(t *testing.T) {
	a, b, c := msg("A"), msg("B"), msg("C")
	embed(a, b).Repeated = true
	embed(a, c).Pointer = true
	got := SortMessages([]*ir.Message{a, b, c})
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
}

func TestSortMessagesNestedUses(t *testing.T) {
	// A.Inner embeds B, so A must follow B.
	a, b := msg("A"), msg("B")
	inner := msg("Inner", "A")
	a.Messages = []*ir.Message{inner}
	embed(inner, b)
	got := SortMessages([]*ir.Message{a, b})
	assert.Equal(t, []string{"B", "A"}, names(got))
}

func TestSortMessagesNestedListsSortedIndependently(t *testing.T) {
	outer := msg("Outer")
	x, y := msg("X", "Outer"), msg("Y", "Outer")
	embed(x, y)
	outer.Messages = []*ir.Message{x, y}
	got := SortMessages([]*ir.Message{outer})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Y", "X"}, names(got[0].Messages))
}

func TestSortMessagesToleratesCycles(t *testing.T) {
	a, b, c := msg("A"), msg("B"), msg("C")
	embed(a, b)
	embed(b, a)
	embed(c, c)
	got := SortMessages([]*ir.Message{a, b, c})
	assert.ElementsMatch(t, []string{"A", "B", "C"}, names(got))
}

func TestSortMessagesRandomAcyclic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(10)
		messages := make([]*ir.Message, n)
		for i := range messages {
			messages[i] = msg(fmt.Sprintf("M%d", i))
		}
		// A random topological rank keeps the graph acyclic while the
		// declaration order is shuffled independently.
		rank := rng.Perm(n)
		for i := range messages {
			for j := range messages {
				if rank[i] > rank[j] && rng.Intn(3) == 0 {
					embed(messages[i], messages[j])
				}
			}
		}
		sorted := SortMessages(append([]*ir.Message(nil), messages...))
		require.Len(t, sorted, n)
		pos := make(map[string]int)
		for i, m := range sorted {
			pos[m.FullName()] = i
		}
		for _, m := range messages {
			for _, dep := range m.InlineDeps() {
				assert.Less(t, pos[dep], pos[m.FullName()], "round %d: %s before %s", round, m.Name, dep)
			}
		}
	}
}

func TestMarkIndirections(t *testing.T) {
	self := msg("Node", "demo")
	selfField := embed(self, self)

	a, b := msg("A", "demo"), msg("B", "demo")
	ab := embed(a, b)
	ba := embed(b, a)

	leaf, user := msg("Leaf", "demo"), msg("User", "demo")
	plain := embed(user, leaf)
	opt := embed(user, leaf)
	opt.Optional = true
	rep := embed(user, self)
	rep.Repeated = true

	oneof := &ir.Oneof{Name: "choice", Namespace: []string{"demo", "User"}}
	member := embed(user, self)
	member.Oneof = oneof

	outer := msg("Outer", "demo")
	inner := msg("Inner", "demo", "Outer")
	outer.Messages = []*ir.Message{inner}
	toInner := embed(outer, inner)
	toOuter := embed(inner, outer)

	file := &ir.File{Package: "demo", Messages: []*ir.Message{self, a, b, leaf, user, outer}}
	MarkIndirections([]*ir.File{file}, false)

	assert.True(t, selfField.Pointer)
	assert.True(t, ab.Pointer)
	assert.True(t, ba.Pointer)
	assert.False(t, plain.Pointer)
	assert.True(t, opt.Pointer)
	assert.False(t, rep.Pointer)
	assert.False(t, member.Pointer)
	assert.True(t, toInner.Pointer)
	assert.True(t, toOuter.Pointer)
	assert.False(t, plain.Pointer)

	MarkIndirections([]*ir.File{file}, true)
	assert.True(t, plain.Pointer)
	assert.False(t, rep.Pointer)
	assert.False(t, member.Pointer)
}

func TestMarkIndirectionsAcrossFiles(t *testing.T) {
	a := msg("A", "one")
	b := msg("B", "two")
	ab := embed(a, b)
	ba := embed(b, a)
	MarkIndirections([]*ir.File{{Package: "one", Messages: []*ir.Message{a}}, {Package: "two", Messages: []*ir.Message{b}}}, false)
	assert.True(t, ab.Pointer)
	assert.True(t, ba.Pointer)
}
