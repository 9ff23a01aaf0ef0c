// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/user"
	inmemdb "github.com/trezcool/preschool/storage/database/inmem"
)

// Logger is a core.Logger recording the logged messages.
type Logger struct {
	mu      sync.Mutex
	entries []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := level + ": " + msg
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			entry += fmt.Sprintf(" (%v)", err)
		}
	}
	l.entries = append(l.entries, entry)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func (l *Logger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]string, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Mailer is a core.EmailService recording the sent messages.
type Mailer struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.sent = append(m.sent, *msg)
	}
}

func (m *Mailer) Sent() []core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]core.EmailMessage, len(m.sent))
	copy(msgs, m.sent)
	return msgs
}

// Accounts bundles an in-memory identity provider and the account service on top of it.
type Accounts struct {
	Store    *inmemdb.DocumentStore
	Provider *identity.LocalProvider
	Service  *user.Service
	Logger   *Logger
	Mailer   *Mailer
}

func NewAccounts(t *testing.T) *Accounts {
	t.Helper()
	return NewAccountsTTL(t, time.Hour)
}

// NewAccountsTTL is NewAccounts with sessions lasting `ttl`.
func NewAccountsTTL(t *testing.T, ttl time.Duration) *Accounts {
	t.Helper()
	store := inmemdb.NewDocumentStore()
	provider, err := identity.NewLocalProvider(store, "test", "secret", ttl)
	if err != nil {
		t.Fatalf("NewLocalProvider() failed: %v", err)
	}
	t.Cleanup(provider.Close)
	logger, mailer := new(Logger), new(Mailer)
	svc, err := user.NewService(provider, store, mailer, logger)
	if err != nil {
		t.Fatalf("user.NewService() failed: %v", err)
	}
	return &Accounts{Store: store, Provider: provider, Service: svc, Logger: logger, Mailer: mailer}
}

// CreateAccount stores an identity and its profile directly, skipping validation.
func (a *Accounts) CreateAccount(t *testing.T, name, email, pwd, role, studentID string) user.Profile {
	t.Helper()
	ctx := context.Background()
	id, err := a.Provider.CreateIdentity(ctx, email, pwd)
	if err != nil {
		t.Fatalf("CreateIdentity() failed: %v", err)
	}
	if err = a.Provider.DestroySession(ctx, id.SessionID); err != nil {
		t.Fatalf("DestroySession() failed: %v", err)
	}
	s := user.Signup{Name: name, Email: email, Role: role, StudentID: studentID}
	s.Clean()
	p := s.Profile(id.UID, time.Now())
	if err = a.Store.Set(ctx, user.ProfilesCollection, id.UID, p); err != nil {
		t.Fatalf("storing profile failed: %v", err)
	}
	return p
}

// Login opens a session for an existing account.
func (a *Accounts) Login(t *testing.T, email, pwd string) identity.Identity {
	t.Helper()
	id, err := a.Provider.VerifyIdentity(context.Background(), email, pwd)
	if err != nil {
		t.Fatalf("VerifyIdentity() failed: %v", err)
	}
	return id
}

// Sheets is a fake spreadsheet export server.
type Sheets struct {
	*httptest.Server

	mu       sync.Mutex
	students string
	attends  string
	hits     map[string]int
}

const (
	StudentsPath   = "/students.csv"
	AttendancePath = "/attendance.csv"
)

func NewSheets(t *testing.T, students, attendance string) *Sheets {
	t.Helper()
	s := &Sheets{students: students, attends: attendance, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Sheets) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	var body string
	switch r.URL.Path {
	case StudentsPath:
		body = s.students
	case AttendancePath:
		body = s.attends
	default:
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write([]byte(body))
}

func (s *Sheets) StudentsURL() string   { return s.URL + StudentsPath }
func (s *Sheets) AttendanceURL() string { return s.URL + AttendancePath }

// Hits returns how many times `path` was fetched.
func (s *Sheets) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

const StudentsCSV = `studentId,name,className,teacher,mood,note,maths,english,science
S001,Asha Rao,Sunflowers,Ms. Mehta,Happy,Loves painting,85,90,78
S002,"Tarun, K",Daisies,Mr. Iyer,Calm,,40,55,60
S003,Nila,Daisies,Mr. Iyer,,,,,
`

const AttendanceCSV = `studentId,date,status
S001,2025-10-01,Present
S001,2025-10-02,Absent
S002,2025-10-02,Present
S001,2025-10-03,Leave
S001,2025-10-03,Present
S001,2025-11-04,Present
S001,not-a-date,Present
`
