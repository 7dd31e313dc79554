package render

import (
	"testing"

	"github.com/sirupsen/logrus"

	"stsc/cache"
	"stsc/project"
)

func TestCollectAssetInputsSkipsImageKindAndDedupes(t *testing.T) {
	proj := &project.Project{
		Assets: map[string]*project.Asset{
			"clip":  {Name: "clip", Path: "clip.mp4", Kind: project.KindVideo},
			"photo": {Name: "photo", Path: "photo.jpg", Kind: project.KindImage},
		},
		Sequences: []*project.Sequence{
			{Fragments: []*project.FragmentSpec{
				{ID: "f1", Kind: project.ReferentAsset, Referent: "clip", InputIndex: 0},
				{ID: "f2", Kind: project.ReferentAsset, Referent: "clip", InputIndex: 0},
				{ID: "f3", Kind: project.ReferentAsset, Referent: "photo", InputIndex: 1},
			}},
		},
	}

	got := collectAssetInputs(proj)
	if len(got) != 1 {
		t.Fatalf("expected exactly one non-image asset input, got %v", got)
	}
	if got[0].InputIndex != 0 || got[0].Path != "clip.mp4" {
		t.Fatalf("unexpected asset input: %+v", got[0])
	}
}

func TestRasterizedSetLooksUpByKindAndID(t *testing.T) {
	r := rasterizedSet{paths: map[string]string{
		"container:banner": "/tmp/banner.png",
		"app:clock":         "/tmp/clock.png",
	}}

	if p, ok := r.PNGPath(project.ReferentContainer, "banner"); !ok || p != "/tmp/banner.png" {
		t.Fatalf("container lookup failed: %q %v", p, ok)
	}
	if p, ok := r.PNGPath(project.ReferentApp, "clock"); !ok || p != "/tmp/clock.png" {
		t.Fatalf("app lookup failed: %q %v", p, ok)
	}
	if _, ok := r.PNGPath(project.ReferentApp, "missing"); ok {
		t.Fatalf("expected miss for unregistered id")
	}
}

func TestContextKeepsTouchedKeys(t *testing.T) {
	// Confirms the touched-set survives a Context round trip without a
	// live browser.
	var touched cache.TouchedKeys
	touched.Touch("abc123")
	rc := &Context{RunID: "test", Log: logrus.NewEntry(logrus.New()), Touched: touched}
	if !rc.Touched.Has("abc123") {
		t.Fatalf("expected touched key to be recorded")
	}
}
