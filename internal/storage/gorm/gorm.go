// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine. The postgres and
// sqlite backends embed it.
package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tandemdrive/tandem/internal/database"
	"github.com/tandemdrive/tandem/internal/geo"
	"github.com/tandemdrive/tandem/internal/model"
	"github.com/tandemdrive/tandem/internal/model/convert"
	"github.com/tandemdrive/tandem/internal/queue"
	"github.com/tandemdrive/tandem/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Snapshots *queue.Queue[model.Snapshot]
	Events    *queue.Queue[model.Event]
	NetStats  *queue.Queue[model.NetStat]
}

func newQueues() *queues {
	return &queues{
		Snapshots: queue.New[model.Snapshot](),
		Events:    queue.New[model.Event](),
		NetStats:  queue.New[model.NetStat](),
	}
}

// Summary is stored on the session row when it ends.
type Summary struct {
	Snapshots int64   `json:"snapshots"`
	Events    int64   `json:"events"`
	NetStats  int64   `json:"netStats"`
	DistanceM float64 `json:"distanceM"`
	DurationS float64 `json:"durationS"`
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	log       *slog.Logger
	queues    *queues
	sessionID atomic.Uint64
	session   *core.Session

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend. A nil DB keeps everything queued,
// which is useful until a connection is attached.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		log:    deps.Logger,
		queues: newQueues(),
	}
}

// SetDB attaches a connection. Must be called before Init.
func (b *Backend) SetDB(db *gorm.DB) { b.deps.DB = db }

// DB returns the attached connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}

	go b.writer()
	return nil
}

// Close stops the writer and flushes what is left.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return b.Flush()
}

// StartSession inserts the session row and assigns its ID.
func (b *Backend) StartSession(s *core.Session) error {
	b.session = s
	if b.deps.DB == nil {
		return nil
	}

	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.log.Info("Session started", "session", s.SessionID, "id", row.ID)
	return nil
}

// SetSessionID points the writer at an existing session row.
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// EndSession flushes the queues and stores the end time and summary.
func (b *Backend) EndSession() error {
	if b.deps.DB == nil || b.session == nil {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}

	id := uint(b.sessionID.Load())
	end := b.session.EndTime
	if end.IsZero() {
		end = time.Now()
		b.session.EndTime = end
	}

	summary, err := b.summarize(id)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	err = b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Updates(map[string]any{
		"end_time": end,
		"summary":  datatypes.JSON(raw),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	b.log.Info("Session ended", "session", b.session.SessionID, "snapshots", summary.Snapshots, "distance_m", summary.DistanceM)
	return nil
}

func (b *Backend) summarize(id uint) (Summary, error) {
	db := b.deps.DB
	var s Summary
	if err := db.Model(&model.Snapshot{}).Where("session_id = ?", id).Count(&s.Snapshots).Error; err != nil {
		return s, fmt.Errorf("failed to count snapshots: %w", err)
	}
	if err := db.Model(&model.Event{}).Where("session_id = ?", id).Count(&s.Events).Error; err != nil {
		return s, fmt.Errorf("failed to count events: %w", err)
	}
	if err := db.Model(&model.NetStat{}).Where("session_id = ?", id).Count(&s.NetStats).Error; err != nil {
		return s, fmt.Errorf("failed to count net stats: %w", err)
	}

	snaps, err := loadSnapshots(db, id)
	if err != nil {
		return s, err
	}
	if ls, err := geo.Trajectory(snaps); err == nil {
		s.DistanceM = geo.Distance(ls)
		s.DurationS = geo.Duration(ls)
	}
	return s, nil
}

// RecordSnapshot converts and queues a snapshot.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	row, err := convert.CoreToSnapshot(*s, time.Now())
	if err != nil {
		return err
	}
	b.queues.Snapshots.Push(row)
	return nil
}

// RecordEvent converts and queues an event.
func (b *Backend) RecordEvent(e *core.SessionEvent) error {
	b.queues.Events.Push(convert.CoreToEvent(*e))
	return nil
}

// RecordNetStats converts and queues a net stats sample.
func (b *Backend) RecordNetStats(n *core.NetStats) error {
	b.queues.NetStats.Push(convert.CoreToNetStat(*n))
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.queues.Snapshots.Len() + b.queues.Events.Len() + b.queues.NetStats.Len()
}

// Flush writes every queue now. Rows stay queued while no session is set.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	sessionID := uint(b.sessionID.Load())
	if sessionID == 0 {
		return nil
	}

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Snapshots, "snapshots", b.log, func(items []model.Snapshot) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Events, "events", b.log, func(items []model.Event) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
		writeQueue(b.deps.DB, b.queues.NetStats, "net stats", b.log, func(items []model.NetStat) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		}),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Items are pushed back when the insert fails.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Failed to write queue", "queue", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return tx.Commit().Error
}

// writer periodically drains the queues into the DB.
func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				continue
			}
			b.log.Debug("Flushed recording queues", "duration", time.Since(start))
		}
	}
}

// ListSessions returns all recorded sessions, newest first.
func ListSessions(db *gorm.DB) ([]core.Session, error) {
	var rows []model.Session
	if err := db.Order("start_time desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	out := make([]core.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.SessionToCore(r))
	}
	return out, nil
}

// Load reads a full recording by its session identifier.
func Load(db *gorm.DB, sessionID string) (core.Recording, error) {
	var rec core.Recording
	var row model.Session
	if err := db.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		return rec, fmt.Errorf("failed to find session %s: %w", sessionID, err)
	}
	rec.Session = convert.SessionToCore(row)

	snaps, err := loadSnapshots(db, row.ID)
	if err != nil {
		return rec, err
	}
	rec.Snapshots = snaps

	var events []model.Event
	if err := db.Where("session_id = ?", row.ID).Order("session_time, id").Find(&events).Error; err != nil {
		return rec, fmt.Errorf("failed to load events: %w", err)
	}
	for _, e := range events {
		rec.Events = append(rec.Events, convert.EventToCore(e))
	}

	var stats []model.NetStat
	if err := db.Where("session_id = ?", row.ID).Order("time, id").Find(&stats).Error; err != nil {
		return rec, fmt.Errorf("failed to load net stats: %w", err)
	}
	for _, n := range stats {
		rec.NetStats = append(rec.NetStats, convert.NetStatToCore(n))
	}
	return rec, nil
}

func loadSnapshots(db *gorm.DB, id uint) ([]core.Snapshot, error) {
	var rows []model.Snapshot
	if err := db.Where("session_id = ?", id).Order("session_time, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	out := make([]core.Snapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.SnapshotToCore(r))
	}
	return out, nil
}
