// Package journal records task lifecycle transitions as JSON documents on
// any afs-supported storage (file, mem, s3, …). It is the externally
// observable telemetry for the engine: detached task failures in particular
// are visible nowhere else.
package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sync/atomic"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// Event kinds recorded by the scheduler.
const (
	EventScheduled       = "scheduled"
	EventCompleted       = "completed"
	EventFailed          = "failed"
	EventCancelled       = "cancelled"
	EventDetachedFailure = "detachedFailure"
)

// Record is one journal entry.
type Record struct {
	RunID    string    `json:"runId"`
	Seq      int64     `json:"seq"`
	Event    string    `json:"event"`
	TaskID   int64     `json:"taskId"`
	ParentID int64     `json:"parentId,omitempty"`
	Task     string    `json:"task,omitempty"`
	Detached bool      `json:"detached,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Service appends records under baseURL/runID/. A nil service or an empty
// base URL is a no-op journal.
type Service struct {
	fs      afs.Service
	baseURL string
	runID   string
	seq     atomic.Int64
}

// New creates a journal rooted at baseURL for the given run. Empty baseURL
// disables journaling.
func New(baseURL, runID string) *Service {
	if baseURL == "" {
		return nil
	}
	return &Service{fs: afs.New(), baseURL: baseURL, runID: runID}
}

// Append persists one record; the sequence number is assigned here.
func (s *Service) Append(ctx context.Context, record Record) error {
	if s == nil {
		return nil
	}
	record.RunID = s.runID
	record.Seq = s.seq.Add(1)
	if record.At.IsZero() {
		record.At = time.Now()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode journal record: %w", err)
	}
	URL := s.recordURL(record.Seq, record.Event)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to append journal record %v: %w", URL, err)
	}
	return nil
}

// List loads every record of this run, in sequence order.
func (s *Service) List(ctx context.Context) ([]*Record, error) {
	if s == nil {
		return nil, nil
	}
	baseURL := joinURL(s.baseURL, s.runID)
	objects, err := s.fs.List(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal %v: %w", baseURL, err)
	}
	var records []*Record
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		record := &Record{}
		if err := json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("corrupted journal record %v: %w", object.URL(), err)
		}
		records = append(records, record)
	}
	sortRecords(records)
	return records, nil
}

func sortRecords(records []*Record) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j-1].Seq > records[j].Seq; j-- {
			records[j-1], records[j] = records[j], records[j-1]
		}
	}
}

func (s *Service) recordURL(seq int64, event string) string {
	return joinURL(s.baseURL, s.runID, fmt.Sprintf("%06d-%v.json", seq, event))
}

func joinURL(baseURL string, elements ...string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" {
		u.Path = path.Join(append([]string{u.Path}, elements...)...)
		return u.String()
	}
	return path.Join(append([]string{baseURL}, elements...)...)
}
