package probe

import "testing"

func TestIsImagePath(t *testing.T) {
	cases := map[string]bool{
		"photo.png":  true,
		"photo.JPG":  true,
		"clip.mp4":   false,
		"track.wav":  false,
		"banner.webp": true,
	}
	for path, want := range cases {
		if got := IsImagePath(path); got != want {
			t.Errorf("IsImagePath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := map[int]int{
		0:    0,
		90:   90,
		-90:  270,
		180:  180,
		270:  270,
		-270: 90,
		360:  0,
		45:   90,
	}
	for in, want := range cases {
		if got := normalizeRotation(in); got != want {
			t.Errorf("normalizeRotation(%d) = %d, want %d", in, got, want)
		}
	}
}
