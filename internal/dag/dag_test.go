// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestOrder_EmptyRoots(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	order, err := g.Order()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestOrder_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	order, err := g.Order("A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A"}) {
		t.Errorf("expected [A], got %v", order)
	}
}

func TestOrder_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"A", "B", "C"} {
		g.AddNode(n)
	}
	// C depends on B, B depends on A.
	g.AddDependency("C", "B")
	g.AddDependency("B", "A")

	order, err := g.Order("C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"A", "B", "C"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestOrder_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"A", "B", "C", "D"} {
		g.AddNode(n)
	}
	// A depends on B and C; both depend on D.
	g.AddDependency("A", "B")
	g.AddDependency("A", "C")
	g.AddDependency("B", "D")
	g.AddDependency("C", "D")

	order, err := g.Order("A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"D", "B", "C", "A"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestOrder_ClosureOnly(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"build", "lint", "test", "unrelated"} {
		g.AddNode(n)
	}
	g.AddDependency("test", "build")

	order, err := g.Order("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"build", "test"}) {
		t.Errorf("expected [build test], got %v", order)
	}
}

func TestOrder_DeclarationOrderTieBreak(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"z", "a", "m", "root"} {
		g.AddNode(n)
	}
	g.AddDependency("root", "m")
	g.AddDependency("root", "z")
	g.AddDependency("root", "a")

	for range 5 {
		order, err := g.Order("root")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"m", "z", "a", "root"}
		if !slices.Equal(order, expected) {
			t.Fatalf("expected %v, got %v", expected, order)
		}
	}
}

func TestOrder_MultipleRootsShareDependency(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"deps", "api", "web"} {
		g.AddNode(n)
	}
	g.AddDependency("api", "deps")
	g.AddDependency("web", "deps")

	order, err := g.Order("web", "api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"deps", "web", "api"}) {
		t.Errorf("unexpected order %v", order)
	}
}

func TestOrder_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	g.AddNode("B")
	g.AddDependency("A", "B")
	g.AddDependency("B", "A")

	_, err := g.Order("A")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Path, []string{"A", "B", "A"}) {
		t.Errorf("expected path [A B A], got %v", cycleErr.Path)
	}
}

func TestOrder_CyclePathStartsAtRepeatedNode(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"root", "a", "b", "c"} {
		g.AddNode(n)
	}
	g.AddDependency("root", "a")
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")
	g.AddDependency("c", "a")

	_, err := g.Order("root")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Path, []string{"a", "b", "c", "a"}) {
		t.Errorf("expected path [a b c a], got %v", cycleErr.Path)
	}
	if got := cycleErr.Error(); got != "dependency cycle detected: a -> b -> c -> a" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestOrder_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	g.AddDependency("A", "A")

	_, err := g.Order("A")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Path, []string{"A", "A"}) {
		t.Errorf("expected [A A], got %v", cycleErr.Path)
	}
}

func TestOrder_CycleInLaterRootFailsWhole(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"ok", "x", "y"} {
		g.AddNode(n)
	}
	g.AddDependency("x", "y")
	g.AddDependency("y", "x")

	order, err := g.Order("ok", "x")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if order != nil {
		t.Errorf("expected no partial order, got %v", order)
	}
}

func TestOrder_UnknownRoot(t *testing.T) {
	t.Parallel()
	g := New()
	_, err := g.Order("missing")
	var unknown *UnknownNodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownNodeError, got %v", err)
	}
	if unknown.Name != "missing" || unknown.From != "" {
		t.Errorf("unexpected error fields: %+v", unknown)
	}
}

func TestOrder_UnknownDependency(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	g.AddDependency("A", "ghost")

	_, err := g.Order("A")
	var unknown *UnknownNodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownNodeError, got %v", err)
	}
	if unknown.Name != "ghost" || unknown.From != "A" {
		t.Errorf("unexpected error fields: %+v", unknown)
	}
}

func TestOrder_DependenciesBeforeDependents(t *testing.T) {
	t.Parallel()
	g := New()
	names := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6"}
	for _, n := range names {
		g.AddNode(n)
	}
	edges := [][2]string{
		{"n6", "n5"}, {"n6", "n1"}, {"n5", "n4"}, {"n5", "n2"},
		{"n4", "n3"}, {"n3", "n0"}, {"n2", "n0"}, {"n1", "n0"},
	}
	for _, e := range edges {
		g.AddDependency(e[0], e[1])
	}

	order, err := g.Sort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if len(pos) != len(names) {
		t.Fatalf("expected %d nodes, got %v", len(names), order)
	}
	for _, e := range edges {
		if pos[e[1]] >= pos[e[0]] {
			t.Errorf("%s must come before %s in %v", e[1], e[0], order)
		}
	}
}

func TestClosure_FollowsExtraEdges(t *testing.T) {
	t.Parallel()
	g := New()
	for _, n := range []string{"a", "b", "c", "d"} {
		g.AddNode(n)
	}
	g.AddDependency("a", "b")
	soft := map[string][]string{"b": {"c"}}

	got, err := g.Closure([]string{"a"}, func(name string) []string { return soft[name] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestClosure_UnknownExtraTarget(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("a")

	_, err := g.Closure([]string{"a"}, func(string) []string { return []string{"nope"} })
	var unknown *UnknownNodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownNodeError, got %v", err)
	}
	if unknown.From != "a" {
		t.Errorf("expected From=a, got %q", unknown.From)
	}
}

func TestGraph_DependenciesCopy(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddDependency("a", "b")

	deps := g.Dependencies("a")
	deps[0] = "mutated"
	if got := g.Dependencies("a"); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Dependencies should return a copy, got %v", got)
	}
	if g.Dependencies("missing") != nil {
		t.Error("expected nil for unknown node")
	}
	if !g.Has("a") || g.Has("zzz") {
		t.Error("Has reported wrong membership")
	}
}
