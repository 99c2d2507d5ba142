package wizard

import (
	"sync"
	"time"

	"hostel-portal/internal/model"
)

// Store holds the open drafts of one signed-in session.
type Store struct {
	mu          sync.Mutex
	drafts      map[string]*Draft
	previewRoot string
}

func NewStore(previewRoot string) *Store {
	return &Store{
		drafts:      map[string]*Draft{},
		previewRoot: previewRoot,
	}
}

// StartCreate opens a fresh draft at the first step.
func (s *Store) StartCreate() *Draft {
	d := newDraft(ModeCreate, s.previewRoot)

	s.mu.Lock()
	s.drafts[d.id] = d
	s.mu.Unlock()

	return d
}

// StartEdit opens a draft prefilled from an existing record, however
// loosely shaped the fetched payload is.
func (s *Store) StartEdit(recordID string, record map[string]any) *Draft {
	d := newDraft(ModeEdit, s.previewRoot)
	d.recordID = recordID
	d.fields, d.sameAddress = Reconcile(record)

	s.mu.Lock()
	s.drafts[d.id] = d
	s.mu.Unlock()

	return d
}

func (s *Store) Get(id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, model.ErrDraftNotFound
	}
	return d, nil
}

// Close discards a draft and releases its staged uploads.
func (s *Store) Close(id string) {
	s.mu.Lock()
	d, ok := s.drafts[id]
	delete(s.drafts, id)
	s.mu.Unlock()

	if ok {
		d.releaseFiles()
	}
}

// ScheduleClose discards a draft after a short delay. An edit that saved
// successfully closes itself this way, leaving a beat for the caller to
// read the final state.
func (s *Store) ScheduleClose(id string, delay time.Duration) {
	time.AfterFunc(delay, func() { s.Close(id) })
}

// CloseAll tears down every open draft, used when the session ends.
func (s *Store) CloseAll() {
	s.mu.Lock()
	drafts := s.drafts
	s.drafts = map[string]*Draft{}
	s.mu.Unlock()

	for _, d := range drafts {
		d.releaseFiles()
	}
}

// State is the draft snapshot handed back to the shell after every
// mutation.
type State struct {
	ID          string        `json:"id"`
	Mode        Mode          `json:"mode"`
	Step        int           `json:"step"`
	StepTitle   string        `json:"stepTitle"`
	Steps       []string      `json:"steps"`
	Fields      Fields        `json:"fields"`
	SameAddress bool          `json:"sameAddress"`
	Files       []*Attachment `json:"files"`
}

func (d *Draft) State() State {
	d.mu.Lock()
	step := d.step
	fields := d.fields
	same := d.sameAddress
	d.mu.Unlock()

	return State{
		ID:          d.id,
		Mode:        d.mode,
		Step:        step,
		StepTitle:   stepTitles[step],
		Steps:       stepTitles[:],
		Fields:      fields,
		SameAddress: same,
		Files:       d.Attachments(),
	}
}
