package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bft-labs/trackship/pkg/action"
	"github.com/bft-labs/trackship/pkg/log"
)

const (
	filePrefix      = "batchFile#"
	counterFileName = "lastBatchId"
	quarantineDir   = "quarantine"
)

// FileStore is a durable Store backed by one compressed file per batch.
//
// A directory must have a single FileStore at a time. This is not enforced.
type FileStore struct {
	mu     sync.RWMutex
	dir    string
	codec  Codec
	opts   options
	ids    []int64
	nextID int64
}

// OpenFileStore opens or creates a FileStore in dir. The pending queue is
// rebuilt from the batch files present. The next id comes from the counter
// file, raised above the highest file id when behind; without a usable
// counter it is the highest file id plus one, or 0 for an empty directory.
func OpenFileStore(dir string, codec Codec, opts ...Option) (*FileStore, error) {
	if codec == nil {
		return nil, errors.New("batch: nil codec")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &FileStore{
		dir:   dir,
		codec: codec,
		opts:  applyOptions(opts),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan store dir: %w", err)
	}

	var ids []int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var next int64
	if len(ids) > 0 {
		next = ids[len(ids)-1] + 1
	}

	counter, err := s.readCounter()
	switch {
	case err == nil:
		if counter < next {
			s.opts.logger.Warn("batch counter behind files, raising",
				log.Int64("counter", counter),
				log.Int64("next_id", next),
			)
		} else {
			next = counter
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		s.opts.logger.Warn("batch counter unreadable, counting files",
			log.Err(err),
			log.Int64("next_id", next),
		)
	}

	s.ids = ids
	s.nextID = next

	s.opts.logger.Info("batch store opened",
		log.String("dir", s.dir),
		log.Int("pending", len(ids)),
		log.Int64("next_id", next),
	)
	return nil
}

func (s *FileStore) readCounter() (int64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, counterFileName))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative counter %d", v)
	}
	return v, nil
}

// Persist writes actions as a new batch file and advances the counter.
// On error no file is left behind and the store state is unchanged.
func (s *FileStore) Persist(ctx context.Context, actions []action.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	path := s.batchPath(id)

	if err := s.writeBatch(path, id, actions); err != nil {
		_ = os.Remove(path)
		s.opts.logger.Error("persist batch failed",
			log.Int64("batch_id", id),
			log.Int("actions", len(actions)),
			log.Err(err),
		)
		return fmt.Errorf("persist batch %d: %w", id, err)
	}
	if err := s.writeCounter(id + 1); err != nil {
		_ = os.Remove(path)
		s.opts.logger.Error("advance batch counter failed",
			log.Int64("batch_id", id),
			log.Err(err),
		)
		return fmt.Errorf("persist batch %d: %w", id, err)
	}

	s.ids = append(s.ids, id)
	s.nextID = id + 1

	s.opts.logger.Debug("batch persisted",
		log.Int64("batch_id", id),
		log.Int("actions", len(actions)),
	)
	return nil
}

func (s *FileStore) writeBatch(path string, id int64, actions []action.Action) error {
	data, err := s.codec.EncodeBatch(id, s.opts.serverID, actions)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	data, err = Deflate(data)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) writeCounter(next int64) error {
	path := filepath.Join(s.dir, counterFileName)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.FormatInt(next, 10)); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Next reads the head batch. A head that cannot be read is logged and
// reported as ErrUnreadable; it stays queued unless quarantine is enabled.
func (s *FileStore) Next(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if len(s.ids) == 0 {
		s.mu.RUnlock()
		return nil, ErrEmpty
	}
	id := s.ids[0]
	b, err := s.readBatch(id)
	s.mu.RUnlock()

	if err == nil {
		return b, nil
	}

	s.opts.logger.Error("read batch failed",
		log.Int64("batch_id", id),
		log.String("path", s.batchPath(id)),
		log.Bool("quarantine", s.opts.quarantine),
		log.Err(err),
	)
	if s.opts.quarantine {
		if qerr := s.quarantine(id); qerr != nil {
			s.opts.logger.Error("quarantine batch failed",
				log.Int64("batch_id", id),
				log.Err(qerr),
			)
		}
	}
	return nil, fmt.Errorf("%w: batch %d: %v", ErrUnreadable, id, err)
}

func (s *FileStore) readBatch(id int64) (*Batch, error) {
	data, err := os.ReadFile(s.batchPath(id))
	if err != nil {
		return nil, err
	}
	data, err = Inflate(data)
	if err != nil {
		return nil, err
	}
	gotID, serverID, actions, err := s.codec.DecodeBatch(data)
	if err != nil {
		return nil, err
	}
	if gotID != id {
		return nil, fmt.Errorf("file holds batch %d", gotID)
	}
	return &Batch{ID: id, ServerID: serverID, Actions: actions}, nil
}

func (s *FileStore) quarantine(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The head may have moved while the read lock was released.
	if len(s.ids) == 0 || s.ids[0] != id {
		return nil
	}
	dst := filepath.Join(s.dir, quarantineDir)
	if err := os.MkdirAll(dst, 0o700); err != nil {
		return err
	}
	if err := os.Rename(s.batchPath(id), filepath.Join(dst, fileName(id))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.ids = s.ids[1:]
	s.opts.logger.Warn("batch quarantined", log.Int64("batch_id", id))
	return nil
}

// Remove deletes the head batch file and dequeues it.
func (s *FileStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) == 0 {
		return nil
	}
	id := s.ids[0]
	if err := os.Remove(s.batchPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove batch %d: %w", id, err)
	}
	s.ids = s.ids[1:]

	s.opts.logger.Debug("batch removed", log.Int64("batch_id", id))
	return nil
}

// Len returns the number of pending batches.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// NextID returns the id the next Persist will assign.
func (s *FileStore) NextID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Pending returns the ids of pending batches in delivery order.
func (s *FileStore) Pending() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) batchPath(id int64) string {
	return filepath.Join(s.dir, fileName(id))
}

func fileName(id int64) string {
	return fmt.Sprintf("%s%011d", filePrefix, id)
}

func parseFileName(name string) (int64, bool) {
	digits, ok := strings.CutPrefix(name, filePrefix)
	if !ok || digits == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

var _ Store = (*FileStore)(nil)
