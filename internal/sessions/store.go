package sessions

import "sync"

// Message is one entry in a session's chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session holds everything remembered about one chat session.
type Session struct {
	History       []Message `json:"history"`
	FileName      string    `json:"file_name"`
	Analysis      string    `json:"analysis"`
	GeneratedFile string    `json:"generated_file"`
}

// Store is the process-wide session registry. All reads hand out copies;
// mutation goes through the setters so no caller shares live state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns a copy of the session for id, creating it on first access.
func (s *Store) Get(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.get(id))
}

// Snapshot returns a copy of the session for id without creating it.
func (s *Store) Snapshot(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{History: []Message{}}, false
	}
	return snapshot(sess), true
}

// Append adds a history entry to the session for id.
func (s *Store) Append(id, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	sess.History = append(sess.History, Message{Role: role, Content: content})
}

// SetFileName records the uploaded context file backing the session.
func (s *Store) SetFileName(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).FileName = name
}

// SetAnalysis records the latest analysis result.
func (s *Store) SetAnalysis(id, analysis string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Analysis = analysis
}

// SetGeneratedFile records the latest refactor output file.
func (s *Store) SetGeneratedFile(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).GeneratedFile = name
}

// get is the lock-held lookup-or-create.
func (s *Store) get(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{History: []Message{}}
		s.sessions[id] = sess
	}
	return sess
}

func snapshot(sess *Session) Session {
	cp := *sess
	cp.History = append([]Message(nil), sess.History...)
	return cp
}
