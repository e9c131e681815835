package layout

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/matzehuels/causalcanvas/pkg/diagram"
	"github.com/matzehuels/causalcanvas/pkg/geom"
)

func nodes(ids ...string) []diagram.Node {
	out := make([]diagram.Node, len(ids))
	for i, id := range ids {
		out[i] = diagram.Node{ID: id, Label: "label " + id, Kind: diagram.KindClaim}
	}
	return out
}

func edge(from, to string) diagram.Edge {
	return diagram.Edge{From: from, To: to, Relation: diagram.RelationCauses}
}

func layerOf(t *testing.T, got []diagram.Node, id string) float64 {
	t.Helper()
	for _, n := range got {
		if n.ID == id {
			return n.Pos.Y
		}
	}
	t.Fatalf("node %s missing from layout", id)
	return 0
}

func TestEmptyInput(t *testing.T) {
	for _, a := range Algorithms() {
		got, err := Apply(a, nil, nil, DefaultConfig())
		if err != nil {
			t.Errorf("Apply(%s, empty) error = %v", a, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Apply(%s, empty) = %v, want empty slice", a, got)
		}
	}
}

func TestApplyUnknown(t *testing.T) {
	_, err := Apply("spiral", nodes("a"), nil, DefaultConfig())
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Apply(spiral) error = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"hierarchical", AlgorithmHierarchical, false},
		{" Grid ", AlgorithmGrid, false},
		{"force-directed", AlgorithmForce, false},
		{"force_directed", AlgorithmForce, false},
		{"circle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v", tt.in, got, err)
		}
	}
	if AlgorithmGrid.Next() != AlgorithmHierarchical {
		t.Errorf("Next() did not wrap around")
	}
}

func TestPreservesAttributes(t *testing.T) {
	in := nodes("a", "b", "c")
	in[1].Kind = diagram.KindThesis
	orig := slices.Clone(in)
	edges := []diagram.Edge{edge("a", "b"), edge("b", "c")}

	for _, a := range Algorithms() {
		got, _ := Apply(a, in, edges, DefaultConfig())
		if !slices.Equal(in, orig) {
			t.Fatalf("Apply(%s) mutated its input", a)
		}
		for i := range got {
			if got[i].ID != in[i].ID || got[i].Label != in[i].Label || got[i].Kind != in[i].Kind {
				t.Errorf("Apply(%s) changed attributes of %s: %+v", a, in[i].ID, got[i])
			}
			if !got[i].Placed {
				t.Errorf("Apply(%s) left %s unplaced", a, in[i].ID)
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	in := nodes("a", "b", "c", "d", "e")
	edges := []diagram.Edge{edge("a", "b"), edge("a", "c"), edge("c", "d"), edge("d", "a")}
	for _, a := range Algorithms() {
		first, _ := Apply(a, in, edges, DefaultConfig())
		second, _ := Apply(a, in, edges, DefaultConfig())
		if !slices.Equal(first, second) {
			t.Errorf("Apply(%s) is not deterministic", a)
		}
	}
}

func TestHierarchicalLayers(t *testing.T) {
	cfg := DefaultConfig()
	in := nodes("root", "a", "b", "leaf")
	edges := []diagram.Edge{edge("root", "a"), edge("root", "b"), edge("a", "leaf"), edge("b", "leaf"), edge("root", "leaf")}
	got := Hierarchical(in, edges, cfg)

	root, a, b, leaf := layerOf(t, got, "root"), layerOf(t, got, "a"), layerOf(t, got, "b"), layerOf(t, got, "leaf")
	if a != b {
		t.Errorf("siblings on different layers: a=%v b=%v", a, b)
	}
	if a-root != cfg.LayerSpacing || leaf-a != cfg.LayerSpacing {
		t.Errorf("layer spacing wrong: root=%v a=%v leaf=%v", root, a, leaf)
	}

	var pts []geom.Point
	for _, n := range got {
		pts = append(pts, n.Pos)
	}
	if c := geom.Centroid(pts); !c.Near(cfg.Anchor, 1e-9) {
		t.Errorf("centroid = %v, want %v", c, cfg.Anchor)
	}
}

func TestHierarchicalCycle(t *testing.T) {
	in := nodes("A", "B", "C")
	edges := []diagram.Edge{edge("A", "B"), edge("B", "C"), edge("C", "A")}
	got := Hierarchical(in, edges, DefaultConfig())

	if len(got) != 3 {
		t.Fatalf("Hierarchical(cycle) returned %d nodes, want 3", len(got))
	}
	ys := map[float64]bool{}
	for _, n := range got {
		ys[n.Pos.Y] = true
	}
	if len(ys) != 3 {
		t.Errorf("Hierarchical(cycle) layers = %v, want A, B, C on three layers", ys)
	}
	if !(layerOf(t, got, "A") < layerOf(t, got, "B") && layerOf(t, got, "B") < layerOf(t, got, "C")) {
		t.Errorf("forced seed A should lead: %+v", got)
	}
}

func TestHierarchicalTrailingLayer(t *testing.T) {
	// x and y form a cycle with no zero in-degree entry point.
	in := nodes("s", "t", "x", "y")
	edges := []diagram.Edge{edge("s", "t"), edge("x", "y"), edge("y", "x")}
	got := Hierarchical(in, edges, DefaultConfig())

	if layerOf(t, got, "x") != layerOf(t, got, "y") {
		t.Errorf("unreached nodes on different layers")
	}
	if layerOf(t, got, "x") <= layerOf(t, got, "t") {
		t.Errorf("unreached nodes not below the main layers")
	}
}

func TestHierarchicalIgnoresMalformedEdges(t *testing.T) {
	in := nodes("a", "b")
	edges := []diagram.Edge{edge("a", "ghost"), edge("a", "a"), edge("a", "b")}
	got := Hierarchical(in, edges, DefaultConfig())
	if layerOf(t, got, "b")-layerOf(t, got, "a") != DefaultConfig().LayerSpacing {
		t.Errorf("Hierarchical() = %+v", got)
	}
}

func TestForceDirectedSeparatesCoincident(t *testing.T) {
	in := nodes("a", "b", "c")
	for i := range in {
		in[i].Pos = geom.Pt(50, 50)
		in[i].Placed = true
	}
	got := ForceDirected(in, []diagram.Edge{edge("a", "b")}, DefaultConfig())
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Pos.Dist(got[j].Pos) < 1 {
				t.Errorf("nodes %s and %s still coincide", got[i].ID, got[j].ID)
			}
		}
		if math.IsNaN(got[i].Pos.X) || math.IsNaN(got[i].Pos.Y) {
			t.Errorf("node %s has NaN position", got[i].ID)
		}
	}
}

func TestForceDirectedCentersOnAnchor(t *testing.T) {
	cfg := DefaultConfig()
	got := ForceDirected(nodes("a", "b", "c", "d"), []diagram.Edge{edge("a", "b"), edge("c", "d")}, cfg)
	var pts []geom.Point
	for _, n := range got {
		pts = append(pts, n.Pos)
	}
	if c := geom.Bounds(pts).Center(); !c.Near(cfg.Anchor, 1e-6) {
		t.Errorf("bounding box center = %v, want %v", c, cfg.Anchor)
	}
}

func TestCircular(t *testing.T) {
	cfg := DefaultConfig()
	got := Circular(nodes("a", "b", "c", "d"), nil, cfg)
	want := []geom.Point{
		geom.Pt(cfg.Anchor.X+cfg.Radius, cfg.Anchor.Y),
		geom.Pt(cfg.Anchor.X, cfg.Anchor.Y+cfg.Radius),
		geom.Pt(cfg.Anchor.X-cfg.Radius, cfg.Anchor.Y),
		geom.Pt(cfg.Anchor.X, cfg.Anchor.Y-cfg.Radius),
	}
	for i := range got {
		if !got[i].Pos.Near(want[i], 1e-9) {
			t.Errorf("Circular()[%d] = %v, want %v", i, got[i].Pos, want[i])
		}
	}
}

func TestGridAndFill(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Columns = 2
	got := Grid(nodes("a", "b", "c"), nil, cfg)
	want := []geom.Point{geom.Pt(100, 100), geom.Pt(300, 100), geom.Pt(100, 300)}
	for i := range got {
		if got[i].Pos != want[i] {
			t.Errorf("Grid()[%d] = %v, want %v", i, got[i].Pos, want[i])
		}
	}

	in := nodes("a", "b", "c")
	in[0].Pos, in[0].Placed = geom.Pt(-5, -5), true
	filled := Fill(in, cfg)
	if filled[0].Pos != geom.Pt(-5, -5) {
		t.Errorf("Fill() moved a placed node to %v", filled[0].Pos)
	}
	if filled[2].Pos != want[2] || !filled[2].Placed {
		t.Errorf("Fill()[2] = %+v, want slot %v", filled[2], want[2])
	}
}

func ExampleHierarchical() {
	in := []diagram.Node{{ID: "exercise"}, {ID: "blood-flow"}, {ID: "memory"}}
	edges := []diagram.Edge{
		{From: "exercise", To: "blood-flow"},
		{From: "blood-flow", To: "memory"},
	}
	for _, n := range Hierarchical(in, edges, DefaultConfig()) {
		fmt.Println(n.ID, n.Pos)
	}
	// Output:
	// exercise (400,150)
	// blood-flow (400,300)
	// memory (400,450)
}
