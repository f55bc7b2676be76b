package scene

import (
	"reflect"
	"testing"
)

func TestDemoSceneGallery(t *testing.T) {
	type spec struct {
		name       string
		expHoles   int
		expTris    int
		expDynamic bool
	}

	specs := []spec{
		{"gargantua", 1, 2, false},
		{"binary", 2, 0, false},
		{"beams", 1, 16, true},
		{"grid", 1, 288, false},
	}

	for specIndex, spec := range specs {
		sc, err := DemoScene(spec.name)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if sc.Camera == nil {
			t.Fatalf("[spec %d] expected scene %q to define a camera", specIndex, spec.name)
		}
		if got := len(sc.BlackHoles()); got != spec.expHoles {
			t.Fatalf("[spec %d] expected scene %q to attach %d black holes; got %d", specIndex, spec.name, spec.expHoles, got)
		}

		flat := sc.Flatten(FrameContext{FrameCount: 1})
		if len(flat.Triangles) != spec.expTris {
			t.Fatalf("[spec %d] expected scene %q to flatten into %d triangles; got %d", specIndex, spec.name, spec.expTris, len(flat.Triangles))
		}
		if flat.Dynamic != spec.expDynamic {
			t.Fatalf("[spec %d] expected scene %q dynamic flag to be %t", specIndex, spec.name, spec.expDynamic)
		}
	}
}

func TestDemoSceneNamesAndDescriptions(t *testing.T) {
	expNames := []string{"gargantua", "binary", "beams", "grid"}
	if got := DemoSceneNames(); !reflect.DeepEqual(got, expNames) {
		t.Fatalf("expected demo scene names %v; got %v", expNames, got)
	}

	for _, name := range DemoSceneNames() {
		if DemoSceneDescription(name) == "" {
			t.Fatalf("expected a description for demo scene %q", name)
		}
	}
	if desc := DemoSceneDescription("warp"); desc != "" {
		t.Fatalf("expected no description for unknown scene; got %q", desc)
	}
}

func TestDemoSceneUnknownName(t *testing.T) {
	_, err := DemoScene("warp")
	if err == nil {
		t.Fatal("expected an error for an unknown scene name")
	}
	if exp := `scene: unknown demo scene "warp"`; err.Error() != exp {
		t.Fatalf("expected error %q; got %q", exp, err.Error())
	}
}
