// Package store implements the Interpreter-Store, the lock-guarded scratchpad
// holding per-backend REPL state across requests.
//
// The store lives in memory and is shared by all workers of an event loop. It
// can be mirrored to a bbolt database, in which case the state of each editor
// process survives a restart of the event loop.
package store

import (
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"src.sniprun.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[store] ")

// KernelLaunched is the content written to a session when its kernel has been
// started.
const KernelLaunched = "kernel_launched"

const bucketSessions = "sessions"

var initDB = map[string](func(*bolt.Tx) error){
	"initialize sessions table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	},
}

// Session is the state kept for one backend.
type Session struct {
	// The backend that owns Content. A reader whose name differs must treat
	// the session as empty.
	Owner string
	// Previously seen import lines, or KernelLaunched.
	Content string
	// Correlation counter. Only meaningful when HasPID is true.
	PID    int
	HasPID bool
}

// Empty reports whether the session holds no content for the given backend.
func (s Session) Empty(backend string) bool {
	return s.Owner != backend || s.Content == ""
}

// Store is the Interpreter-Store. All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	editorPID int
	sessions  map[string]*Session
	db        *bolt.DB
}

// NewMemory returns a Store that is not backed by a database.
func NewMemory(editorPID int) *Store {
	return &Store{editorPID: editorPID, sessions: make(map[string]*Session)}
}

// Open returns a Store mirrored to the bbolt database at dbname, loading the
// sessions previously saved for editorPID.
func Open(dbname string, editorPID int) (*Store, error) {
	db, err := bolt.Open(dbname, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				logger.Printf("failed to %s: %v", name, err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s := NewMemory(editorPID)
	s.db = db
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EditorPID returns the editor process the store is keyed to.
func (s *Store) EditorPID() int { return s.editorPID }

// View returns a copy of the session of a backend.
func (s *Store) View(backend string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[backend]; ok {
		return *sess
	}
	return Session{}
}

// Update calls f with a copy of the session of a backend while holding the
// lock. The changes made by f are kept only if it returns nil.
func (s *Store) Update(backend string, f func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sess Session
	if old, ok := s.sessions[backend]; ok {
		sess = *old
	}
	if err := f(&sess); err != nil {
		return err
	}
	if sess.Owner != "" && sess.Owner != backend {
		// A session slot only ever belongs to its backend.
		sess.Owner = backend
	}
	s.sessions[backend] = &sess
	s.persist(backend, sess)
	return nil
}

// NextID allocates a fresh correlation id for a backend: the counter is
// incremented and persisted, and its new value returned.
func (s *Store) NextID(backend string) (int, error) {
	var id int
	err := s.Update(backend, func(sess *Session) error {
		sess.PID++
		sess.HasPID = true
		id = sess.PID
		return nil
	})
	return id, err
}

// Sessions returns a copy of all sessions, keyed by backend name.
func (s *Store) Sessions() map[string]Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]Session, len(s.sessions))
	for name, sess := range s.sessions {
		m[name] = *sess
	}
	return m
}

// Clear truncates the owner and content of every session. Correlation
// counters are kept so that ids stay unique for a running kernel.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, sess := range s.sessions {
		sess.Owner = ""
		sess.Content = ""
		s.persist(name, *sess)
	}
}

// Close closes the database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) editorKey() []byte { return []byte(strconv.Itoa(s.editorPID)) }

func (s *Store) load() error {
	return s.db.View(func(tx *bolt.Tx) error {
		eb := tx.Bucket([]byte(bucketSessions)).Bucket(s.editorKey())
		if eb == nil {
			return nil
		}
		return eb.ForEach(func(k, v []byte) error {
			b := eb.Bucket(k)
			if b == nil {
				return nil
			}
			s.sessions[string(k)] = unmarshalSession(b)
			return nil
		})
	})
}

// Must be called with s.mu held. Failures to persist are logged; the
// in-memory state remains authoritative.
func (s *Store) persist(backend string, sess Session) {
	if s.db == nil {
		return
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		eb, err := tx.Bucket([]byte(bucketSessions)).CreateBucketIfNotExists(s.editorKey())
		if err != nil {
			return err
		}
		b, err := eb.CreateBucketIfNotExists([]byte(backend))
		if err != nil {
			return err
		}
		return marshalSession(b, sess)
	})
	if err != nil {
		logger.Printf("failed to persist session of %s: %v", backend, err)
	}
}
