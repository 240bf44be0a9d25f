package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/esl-mosaic/pawr-go/pkg/slot"
)

// RosterVersion is the current version of the roster file format.
const RosterVersion = 1

// ErrRosterMismatch is returned when a saved roster does not fit the
// configured slot layout.
var ErrRosterMismatch = errors.New("roster does not match slot layout")

// Roster lists the nodes a coordinator has commissioned.
type Roster struct {
	// Version is the roster file format version.
	Version int `json:"version"`

	// SavedAt is when the roster was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Capacity is the slot capacity the roster was built for.
	Capacity int `json:"capacity"`

	// Committed is the allocator counter.
	Committed int `json:"committed"`

	// Nodes contains one entry per committed coordinate, in commit order.
	Nodes []RosterEntry `json:"nodes,omitempty"`
}

// RosterEntry records one commissioned node.
type RosterEntry struct {
	// Address is the node's device address.
	Address string `json:"address"`

	// Coordinate is the coordinate written to the node.
	Coordinate slot.Coordinate `json:"coordinate"`

	// CommissionedAt is when the coordinate was committed.
	CommissionedAt time.Time `json:"commissioned_at"`
}

// Add appends an entry and advances the committed count.
func (r *Roster) Add(e RosterEntry) {
	r.Nodes = append(r.Nodes, e)
	r.Committed++
}

// Clone returns a deep copy of the roster.
func (r *Roster) Clone() *Roster {
	c := *r
	c.Nodes = slices.Clone(r.Nodes)
	return &c
}

// Check verifies that the roster can seed an allocator with layout.
func (r *Roster) Check(layout slot.Layout) error {
	if r.Capacity != layout.Capacity() {
		return fmt.Errorf("%w: capacity %d, layout %d", ErrRosterMismatch, r.Capacity, layout.Capacity())
	}
	if r.Committed < 0 || r.Committed > r.Capacity {
		return fmt.Errorf("%w: committed %d outside 0..%d", ErrRosterMismatch, r.Committed, r.Capacity)
	}
	if len(r.Nodes) != r.Committed {
		return fmt.Errorf("%w: %d entries for %d committed", ErrRosterMismatch, len(r.Nodes), r.Committed)
	}
	for i, n := range r.Nodes {
		if want := layout.CoordinateAt(i); n.Coordinate != want {
			return fmt.Errorf("%w: entry %d has %s, layout assigns %s", ErrRosterMismatch, i, n.Coordinate, want)
		}
	}
	return nil
}

// RosterStore manages persistence of the roster to a JSON file.
type RosterStore struct {
	mu   sync.Mutex
	path string
}

// NewRosterStore creates a roster store.
func NewRosterStore(path string) *RosterStore {
	return &RosterStore{path: path}
}

// Path returns the roster file path.
func (s *RosterStore) Path() string {
	return s.path
}

// Save persists the roster to disk.
func (s *RosterStore) Save(roster *Roster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	roster.Version = RosterVersion
	roster.SavedAt = time.Now()

	data, err := json.MarshalIndent(roster, "", "  ")
	if err != nil {
		return err
	}

	// Replace atomically.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the roster from disk.
// Returns nil, nil if the file doesn't exist (empty roster).
func (s *RosterStore) Load() (*Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	roster := &Roster{}
	if err := json.Unmarshal(data, roster); err != nil {
		return nil, err
	}
	if roster.Version != RosterVersion {
		return nil, fmt.Errorf("unsupported roster version %d", roster.Version)
	}
	return roster, nil
}

// Clear removes the roster file.
func (s *RosterStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
