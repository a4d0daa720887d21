package storage

import (
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	rel, err := store.Save(BucketReceipts, "individual/3", "receipt.pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(rel, BucketReceipts+"/individual/3/") {
		t.Errorf("rel = %q, want receipts/individual/3/ prefix", rel)
	}
	if !strings.HasSuffix(rel, "_receipt.pdf") {
		t.Errorf("rel = %q, want original name suffix", rel)
	}

	f, err := store.Open(rel)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "pdf-bytes" {
		t.Errorf("content = %q", got)
	}
}

func TestSaveSanitizesFilename(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	rel, err := store.Save(BucketRosters, "group/1", "../..//weird name!?.xlsx", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.Contains(rel, "..") || strings.Contains(rel, " ") || strings.Contains(rel, "!") {
		t.Errorf("rel = %q, not sanitized", rel)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, rel := range []string{"../etc/passwd", "receipts/../../secret"} {
		if _, err := store.Open(rel); err != ErrOutsideStore {
			t.Errorf("Open(%q) err = %v, want ErrOutsideStore", rel, err)
		}
	}
}
