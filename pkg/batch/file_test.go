package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bft-labs/trackship/pkg/action"
	"github.com/bft-labs/trackship/pkg/codec"
)

func openStore(t *testing.T, dir string, opts ...Option) *FileStore {
	t.Helper()
	s, err := OpenFileStore(dir, codec.NewJSON(), opts...)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	return s
}

func events(names ...string) []action.Action {
	out := make([]action.Action, len(names))
	for i, n := range names {
		out[i] = action.NewEvent(n)
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileStore_PersistAndReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := openStore(t, dir, WithServerID("eu-1"))
	in := events("a", "b")
	in[0] = in[0].WithProperty("k", "v").WithUserID("u1")
	if err := s.Persist(ctx, in); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := s.Persist(ctx, events("c")); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "batchFile#00000000000")); err != nil {
		t.Errorf("batch file missing: %v", err)
	}
	counter, err := os.ReadFile(filepath.Join(dir, "lastBatchId"))
	if err != nil || string(counter) != "2" {
		t.Errorf("counter = %q, %v; want 2", counter, err)
	}

	// A new store over the same directory sees the same queue.
	s2 := openStore(t, dir)
	if got := s2.Pending(); !slices.Equal(got, []int64{0, 1}) {
		t.Fatalf("Pending() = %v, want [0 1]", got)
	}
	if s2.NextID() != 2 {
		t.Errorf("NextID() = %d, want 2", s2.NextID())
	}

	b, err := s2.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if b.ID != 0 || b.ServerID != "eu-1" || len(b.Actions) != 2 {
		t.Fatalf("batch = %+v", b)
	}
	for i := range in {
		if !b.Actions[i].Equal(in[i]) {
			t.Errorf("action %d = %+v, want %+v", i, b.Actions[i], in[i])
		}
	}

	if err := s2.Remove(ctx); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "batchFile#00000000000")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("removed file still present: %v", err)
	}
	b, err = s2.Next(ctx)
	if err != nil || b.ID != 1 {
		t.Fatalf("Next() = %v, %v; want batch 1", b, err)
	}
}

func TestFileStore_Recovery(t *testing.T) {
	tests := []struct {
		name        string
		files       []string
		counter     *string
		wantPending []int64
		wantNext    int64
	}{
		{
			name:        "counter ahead of files",
			files:       []string{"batchFile#00000000000", "batchFile#00000000001", "batchFile#00000000002"},
			counter:     ptr("5"),
			wantPending: []int64{0, 1, 2},
			wantNext:    5,
		},
		{
			name:        "counter behind files",
			files:       []string{"batchFile#00000000003", "batchFile#00000000007"},
			counter:     ptr("4"),
			wantPending: []int64{3, 7},
			wantNext:    8,
		},
		{
			name:        "unparsable counter",
			files:       []string{"batchFile#00000000002"},
			counter:     ptr("garbage"),
			wantPending: []int64{2},
			wantNext:    3,
		},
		{
			name:        "missing counter",
			files:       []string{"batchFile#00000000009", "batchFile#00000000001"},
			wantPending: []int64{1, 9},
			wantNext:    10,
		},
		{
			name:     "counter only",
			counter:  ptr("12\n"),
			wantNext: 12,
		},
		{
			name:     "empty directory",
			wantNext: 0,
		},
		{
			name:        "foreign files ignored",
			files:       []string{"batchFile#00000000001", "notes.txt", "batchFile#abc", "lastBatchId.tmp"},
			wantPending: []int64{1},
			wantNext:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, f), "x")
			}
			if tt.counter != nil {
				writeFile(t, filepath.Join(dir, "lastBatchId"), *tt.counter)
			}

			s := openStore(t, dir)
			if got := s.Pending(); !slices.Equal(got, tt.wantPending) {
				t.Errorf("Pending() = %v, want %v", got, tt.wantPending)
			}
			if s.Len() != len(tt.wantPending) {
				t.Errorf("Len() = %d, want %d", s.Len(), len(tt.wantPending))
			}
			if s.NextID() != tt.wantNext {
				t.Errorf("NextID() = %d, want %d", s.NextID(), tt.wantNext)
			}
		})
	}
}

func TestFileStore_StaleCounterDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	for i := 0; i < 3; i++ {
		if err := s.Persist(ctx, events("e")); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Remove(ctx); err != nil {
		t.Fatal(err)
	}

	s2 := openStore(t, dir)
	if got := s2.Pending(); !slices.Equal(got, []int64{1, 2}) {
		t.Errorf("Pending() = %v, want [1 2]", got)
	}
	if s2.NextID() != 3 {
		t.Errorf("NextID() = %d, want 3", s2.NextID())
	}
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	openStore(t, dir)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("store dir not created: %v", err)
	}
}

func TestFileStore_OpenFailsWhenDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, "x")
	if _, err := OpenFileStore(path, codec.NewJSON()); err == nil {
		t.Error("expected error when store path is a regular file")
	}
}

type failingCodec struct {
	Codec
}

func (failingCodec) EncodeBatch(int64, string, []action.Action) ([]byte, error) {
	return nil, errors.New("encode boom")
}

func TestFileStore_PersistEncodeFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := OpenFileStore(dir, failingCodec{Codec: codec.NewJSON()})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Persist(ctx, events("a")); !errors.Is(err, ErrEncode) {
		t.Fatalf("Persist() error = %v, want ErrEncode", err)
	}
	assertUntouched(t, s, dir)
}

func TestFileStore_PersistCounterFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	// A directory where the counter temp file goes makes the counter write fail.
	if err := os.Mkdir(filepath.Join(dir, "lastBatchId.tmp"), 0o700); err != nil {
		t.Fatal(err)
	}
	err := s.Persist(ctx, events("a"))
	if err == nil {
		t.Fatal("expected Persist() error")
	}
	if errors.Is(err, ErrEncode) {
		t.Errorf("Persist() error = %v, an I/O failure must not be ErrEncode", err)
	}
	assertUntouched(t, s, dir)
}

func assertUntouched(t *testing.T, s *FileStore, dir string) {
	t.Helper()
	if s.Len() != 0 || s.NextID() != 0 {
		t.Errorf("Len/NextID = %d/%d, want 0/0", s.Len(), s.NextID())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "batchFile#") {
			t.Errorf("partial batch file left behind: %s", e.Name())
		}
		if e.Name() == "lastBatchId" {
			t.Error("counter advanced after failed persist")
		}
	}
}

func TestFileStore_UnreadableHeadRetained(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "batchFile#00000000000"), "not deflate")

	s := openStore(t, dir)
	if err := s.Persist(ctx, events("good")); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := s.Next(ctx); !errors.Is(err, ErrUnreadable) {
			t.Fatalf("Next() = %v, want ErrUnreadable", err)
		}
	}
	if got := s.Pending(); !slices.Equal(got, []int64{0, 1}) {
		t.Errorf("Pending() = %v, want [0 1]", got)
	}
}

func TestFileStore_QuarantineUnreadableHead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "batchFile#00000000000"), "not deflate")

	s := openStore(t, dir, WithQuarantine(true))
	if err := s.Persist(ctx, events("good")); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Next(ctx); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("Next() = %v, want ErrUnreadable", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "quarantine", "batchFile#00000000000")); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}

	b, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if b.ID != 1 {
		t.Errorf("head = %d, want 1", b.ID)
	}

	// Quarantined files are not picked up again.
	if got := openStore(t, dir).Pending(); !slices.Equal(got, []int64{1}) {
		t.Errorf("Pending() after reopen = %v, want [1]", got)
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := openStore(t, t.TempDir())
	if err := s.Persist(ctx, events("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("Persist() = %v, want context.Canceled", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func ptr(s string) *string { return &s }
