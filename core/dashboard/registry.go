package dashboard

import (
	"sync"
	"time"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/identity"
)

// Session holds the mounted components of one identity session.
type Session struct {
	View   *View
	Widget *chat.Widget
}

func (s *Session) unmount() {
	s.View.Unmount()
	s.Widget.Unmount()
}

// Registry keeps the dashboard of each session and tears it down when the session ends.
type Registry struct {
	fetcher       Fetcher
	initial       calendar.YearMonth
	widgetConf    chat.WidgetConfig
	widgetTimeout time.Duration
	logger        core.Logger
	sub           identity.Subscription

	mu       sync.Mutex
	sessions map[string]*Session // {sessionID: session}
}

func NewRegistry(
	provider identity.Provider,
	fetcher Fetcher,
	initial calendar.YearMonth,
	widgetConf chat.WidgetConfig,
	widgetTimeout time.Duration,
	logger core.Logger,
) *Registry {
	r := &Registry{
		fetcher:       fetcher,
		initial:       initial,
		widgetConf:    widgetConf,
		widgetTimeout: widgetTimeout,
		logger:        logger,
		sessions:      make(map[string]*Session),
	}
	r.sub = provider.Subscribe(func(evt identity.Event) {
		if evt.Kind == identity.IdentityAbsent {
			r.Close(evt.Identity.SessionID)
		}
	})
	return r
}

// Open returns the session's dashboard, creating it on first use.
func (r *Registry) Open(sessionID, studentID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		return s
	}
	s := &Session{
		View:   NewView(studentID, r.initial, r.fetcher, r.logger),
		Widget: chat.NewWidget(r.widgetConf, r.widgetTimeout, r.logger),
	}
	r.sessions[sessionID] = s
	return s
}

func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Close unmounts and forgets the session's dashboard.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		s.unmount()
	}
}

// Shutdown stops following the sessions and unmounts every dashboard.
func (r *Registry) Shutdown() {
	r.sub.Unsubscribe()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.unmount()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
