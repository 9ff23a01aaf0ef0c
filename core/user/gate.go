package user

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/identity"
)

// View is what a session gets to see.
type View string

const (
	ViewLogin   View = "login"
	ViewTeacher View = "teacher"
	ViewParent  View = "parent"
)

const (
	TeacherNotice    = "You can upload student marks and view reports here (coming soon)."
	StudentNotLinked = "Student ID not linked."

	profileLoadTimeout = 10 * time.Second
)

type (
	ProfileGetter interface {
		GetProfile(ctx context.Context, uid string) (Profile, error)
	}

	// Session is the outcome of the gate for one session.
	Session struct {
		View     View              `json:"view"`
		Identity identity.Identity `json:"-"`
		Profile  *Profile          `json:"profile,omitempty"`
		Notice   string            `json:"notice,omitempty"`
	}

	gateEntry struct {
		identity identity.Identity
		profile  *Profile
	}
)

// Welcome returns the name shown in the welcome banner.
func (s Session) Welcome() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Name
}

// Gate follows the identity provider and resolves the view of each session.
type Gate struct {
	profiles ProfileGetter
	logger   core.Logger
	sub      identity.Subscription

	mu       sync.RWMutex
	sessions map[string]*gateEntry // {sessionID: entry}
}

func NewGate(provider identity.Provider, profiles ProfileGetter, logger core.Logger) *Gate {
	g := &Gate{
		profiles: profiles,
		logger:   logger,
		sessions: make(map[string]*gateEntry),
	}
	g.sub = provider.Subscribe(g.handle)
	return g
}

// Close stops following the identity provider.
func (g *Gate) Close() {
	g.sub.Unsubscribe()
}

func (g *Gate) handle(evt identity.Event) {
	sid := evt.Identity.SessionID
	switch evt.Kind {
	case identity.IdentityPresent:
		g.mu.Lock()
		g.sessions[sid] = &gateEntry{identity: evt.Identity}
		g.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), profileLoadTimeout)
		defer cancel()
		if _, err := g.loadProfile(ctx, sid); err != nil && errors.Cause(err) != core.ErrProfileNotFound {
			g.logger.Error("loading profile", err)
		}
	case identity.IdentityAbsent:
		g.mu.Lock()
		delete(g.sessions, sid)
		g.mu.Unlock()
	}
}

// loadProfile looks the profile of a tracked session up and stores it.
func (g *Gate) loadProfile(ctx context.Context, sessionID string) (*Profile, error) {
	g.mu.RLock()
	entry, ok := g.sessions[sessionID]
	var uid string
	if ok {
		uid = entry.identity.UID
	}
	g.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	p, err := g.profiles.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok = g.sessions[sessionID]; !ok { // signed out meanwhile
		return nil, nil
	}
	entry.profile = &p
	return &p, nil
}

// Resolve returns the view of an authenticated identity.
// Sessions opened before the gate started (eg. before a restart) are adopted.
func (g *Gate) Resolve(ctx context.Context, id identity.Identity) (Session, error) {
	if id.SessionID == "" {
		return Session{View: ViewLogin}, nil
	}

	g.mu.Lock()
	entry, ok := g.sessions[id.SessionID]
	if !ok {
		entry = &gateEntry{identity: id}
		g.sessions[id.SessionID] = entry
	}
	profile := entry.profile
	g.mu.Unlock()

	if profile == nil {
		p, err := g.loadProfile(ctx, id.SessionID)
		if err != nil {
			return Session{View: ViewLogin}, err
		}
		if p == nil {
			return Session{View: ViewLogin}, nil
		}
		profile = p
	}
	return sessionFor(id, *profile), nil
}

// Profile returns the cached profile of a session.
func (g *Gate) Profile(sessionID string) (Profile, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if entry, ok := g.sessions[sessionID]; ok && entry.profile != nil {
		return *entry.profile, true
	}
	return Profile{}, false
}

// Len returns the number of tracked sessions.
func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

func sessionFor(id identity.Identity, p Profile) Session {
	s := Session{Identity: id, Profile: &p}
	switch {
	case p.IsTeacher():
		s.View = ViewTeacher
		s.Notice = TeacherNotice
	default:
		s.View = ViewParent
		if !p.HasStudent() {
			s.Notice = StudentNotLinked
		}
	}
	return s
}
