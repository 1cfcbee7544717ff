package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

func node(name string, prereqs ...*domain.Node) *domain.Node {
	return &domain.Node{
		Name:    domain.NewInternedString(name),
		Prereqs: prereqs,
	}
}

func TestGraph_Walk(t *testing.T) {
	// c has no prerequisites, b needs c, a needs b.
	c := node("c")
	b := node("b", c)
	a := node("a", b)

	g := domain.NewGraph([]*domain.Node{c, b, a}, []*domain.Node{a})

	var visited []string
	for n := range g.Walk() {
		visited = append(visited, n.Name.String())
	}

	if len(visited) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(visited))
	}
	if visited[0] != "c" || visited[1] != "b" || visited[2] != "a" {
		t.Errorf("unexpected walk order: %v", visited)
	}
}

func TestGraph_NodeIdentity(t *testing.T) {
	shared := node("shared.txt")
	left := node("left", shared)
	right := node("right", shared)

	g := domain.NewGraph([]*domain.Node{shared, left, right}, []*domain.Node{left, right})

	got, ok := g.Node("shared.txt")
	if !ok {
		t.Fatal("expected to find shared.txt")
	}
	if got != shared {
		t.Error("expected the same node instance for the shared prerequisite")
	}
	if got != left.Prereqs[0] || got != right.Prereqs[0] {
		t.Error("expected both dependents to reference the same node instance")
	}
}

func TestGraph_Dependents(t *testing.T) {
	shared := node("shared.txt")
	left := node("left", shared)
	right := node("right", shared)

	g := domain.NewGraph([]*domain.Node{shared, left, right}, []*domain.Node{left, right})

	deps := g.Dependents(shared)
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %d", len(deps))
	}
	if deps[0] != left || deps[1] != right {
		t.Errorf("unexpected dependents: %v", deps)
	}

	if got := g.Dependents(left); len(got) != 0 {
		t.Errorf("expected no dependents for a root, got %d", len(got))
	}
}

func TestNode_FirstPrereq(t *testing.T) {
	leaf := node("leaf")
	if got := leaf.FirstPrereq(); got != "" {
		t.Errorf("expected empty first prerequisite, got %q", got)
	}

	parent := node("parent", node("one"), node("two"))
	if got := parent.FirstPrereq(); got != "one" {
		t.Errorf("expected first prerequisite one, got %q", got)
	}
}

func TestCycleError(t *testing.T) {
	path := []domain.InternedString{
		domain.NewInternedString("entry"),
		domain.NewInternedString("a"),
		domain.NewInternedString("b"),
	}

	err := domain.CycleError(path, domain.NewInternedString("a"))
	if !errors.Is(err, domain.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	meta := zErr.Metadata()
	if cycle, ok := meta["cycle"].(string); !ok || cycle != "a -> b -> a" {
		t.Errorf("expected cycle metadata a -> b -> a, got %v", meta["cycle"])
	}
}
