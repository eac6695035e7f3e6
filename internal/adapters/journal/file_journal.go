// Package journal persists experiences to an append-only file so the store
// can be rebuilt after a restart.
package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

const (
	FileName       = "experiences.log"
	entryHeaderLen = 12
)

var ErrClosed = errors.New("journal closed")

// FileJournal stores entries as [8 bytes id][4 bytes len][len bytes json].
// A torn tail left by a crash is truncated on open.
type FileJournal struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	out       io.Writer
	writer    *bufio.Writer
	lastID    ports.EntryID
	entries   uint64
	sizeBytes int64
	closed    bool
}

func NewFileJournal(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	j := &FileJournal{
		path:   path,
		file:   f,
		out:    f,
		writer: bufio.NewWriterSize(f, 64<<10),
	}
	if err := j.recover(); err != nil {
		f.Close()
		return nil, fmt.Errorf("journal recover %s: %w", path, err)
	}
	return j, nil
}

// recover walks the existing log, restores counters and cuts off a partial
// trailing entry.
func (j *FileJournal) recover() error {
	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	r := bufio.NewReader(rf)
	var offset int64
	for {
		var hdr [entryHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("scan header: %w", err)
		}
		id := ports.EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := int64(binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.CopyN(io.Discard, r, length); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("scan body: %w", err)
		}
		offset += entryHeaderLen + length
		j.lastID = id
		j.entries++
	}

	if err := j.file.Truncate(offset); err != nil {
		return err
	}
	j.sizeBytes = offset
	_, err = j.file.Seek(0, io.SeekEnd)
	return err
}

// Append writes e and flushes it to the OS before returning.
func (j *FileJournal) Append(e domain.Experience) (ports.EntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}

	b, err := json.Marshal(e)
	if err != nil {
		return 0, err
	}
	id := j.lastID + 1

	var hdr [entryHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := j.writer.Write(hdr[:]); err != nil {
		return 0, j.rollback(err)
	}
	if _, err := j.writer.Write(b); err != nil {
		return 0, j.rollback(err)
	}
	if err := j.writer.Flush(); err != nil {
		return 0, j.rollback(err)
	}

	j.lastID = id
	j.entries++
	j.sizeBytes += int64(len(hdr) + len(b))
	return id, nil
}

// rollback drops whatever part of a failed entry reached the file and
// clears the writer's sticky error so the next Append can succeed.
func (j *FileJournal) rollback(cause error) error {
	j.writer.Reset(j.out)
	if err := j.file.Truncate(j.sizeBytes); err != nil {
		return errors.Join(cause, fmt.Errorf("journal rollback: %w", err))
	}
	return cause
}

// Iterate calls fn for every entry with id >= from, in append order.
func (j *FileJournal) Iterate(from ports.EntryID, fn func(id ports.EntryID, e domain.Experience) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [entryHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal truncated header: %w", err)
		}
		id := ports.EntryID(binary.BigEndian.Uint64(hdr[0:8]))
		b := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.ReadFull(r, b); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if id < from {
			continue
		}

		var e domain.Experience
		if err := json.Unmarshal(b, &e); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if err := fn(id, e); err != nil {
			return err
		}
	}
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		Entries:        j.entries,
		LatestAppended: j.lastID,
		SizeBytes:      j.sizeBytes,
	}
}

// Close flushes, fsyncs and closes the file. It is safe to call twice.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return errors.Join(j.writer.Flush(), j.file.Sync(), j.file.Close())
}

var _ ports.ExperienceJournal = (*FileJournal)(nil)
