package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestReapDeletesUntouchedKeepsTouched(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keepme.png")
	drop := filepath.Join(dir, "dropme.png")
	if err := os.WriteFile(keep, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(drop, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	var touched TouchedKeys
	touched.Touch("keepme")

	log := logrus.NewEntry(logrus.New())
	Reap([]string{dir}, &touched, log)

	if _, err := os.Stat(keep); err != nil {
		t.Errorf("expected touched entry to survive: %v", err)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Errorf("expected untouched entry to be removed, stat err=%v", err)
	}
}

func TestReapMissingDirIsAdvisory(t *testing.T) {
	var touched TouchedKeys
	log := logrus.NewEntry(logrus.New())
	Reap([]string{"/nonexistent/path/for/test"}, &touched, log)
}
