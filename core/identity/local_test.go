package identity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	inmemdb "github.com/trezcool/preschool/storage/database/inmem"
)

func newTestProvider(t *testing.T) (*LocalProvider, *inmemdb.DocumentStore) {
	return newTestProviderTTL(t, time.Hour)
}

func newTestProviderTTL(t *testing.T, ttl time.Duration) (*LocalProvider, *inmemdb.DocumentStore) {
	t.Helper()
	store := inmemdb.NewDocumentStore()
	p, err := NewLocalProvider(store, "test", "secret", ttl)
	require.NoError(t, err)
	p.hashPwd = func(pwd []byte) ([]byte, error) { return bcrypt.GenerateFromPassword(pwd, bcrypt.MinCost) }
	t.Cleanup(p.Close)
	return p, store
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestNewLocalProvider_Args(t *testing.T) {
	_, err := NewLocalProvider(nil, "test", "secret", time.Hour)
	assert.Error(t, err)
	_, err = NewLocalProvider(inmemdb.NewDocumentStore(), "test", "", time.Hour)
	assert.Error(t, err)
}

func TestLocalProvider_CreateIdentity(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "created", email: " Parent@Example.com ", pwd: "secret123"},
		{name: "duplicate email", email: "parent@example.com", pwd: "secret123", wantErr: ErrIdentityExists},
		{name: "weak password", email: "other@example.com", pwd: "12345", wantErr: ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := p.CreateIdentity(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, id.UID)
			assert.NotEmpty(t, id.SessionID)
			assert.NotEmpty(t, id.Token)
			assert.Equal(t, "parent@example.com", id.Email)
		})
	}
	assert.Equal(t, 1, store.Len(CredentialsCollection))
	assert.Equal(t, 1, store.Len(SessionsCollection))
}

func TestLocalProvider_CreateIdentityConcurrent(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t)

	var (
		wg      sync.WaitGroup
		created int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.CreateIdentity(ctx, "parent@example.com", fmt.Sprintf("secret12%d", i))
			switch err {
			case nil:
				atomic.AddInt32(&created, 1)
			case ErrIdentityExists:
			default:
				t.Errorf("CreateIdentity() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, created)
	assert.Equal(t, 1, store.Len(CredentialsCollection))
	assert.Equal(t, 1, store.Len(SessionsCollection))
}

func TestLocalProvider_VerifyAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)
	created, err := p.CreateIdentity(ctx, "teacher@example.com", "secret123")
	require.NoError(t, err)

	_, err = p.VerifyIdentity(ctx, "teacher@example.com", "wrong-pwd")
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = p.VerifyIdentity(ctx, "nobody@example.com", "secret123")
	assert.Equal(t, ErrInvalidCredentials, err)

	id, err := p.VerifyIdentity(ctx, "TEACHER@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.UID, id.UID)
	assert.NotEqual(t, created.SessionID, id.SessionID)

	authed, err := p.Authenticate(ctx, id.Token)
	require.NoError(t, err)
	assert.Equal(t, id.UID, authed.UID)
	assert.Equal(t, id.SessionID, authed.SessionID)

	_, err = p.Authenticate(ctx, "not-a-token")
	assert.Equal(t, ErrInvalidSession, err)

	// revoked
	require.NoError(t, p.DestroySession(ctx, id.SessionID))
	_, err = p.Authenticate(ctx, id.Token)
	assert.Equal(t, ErrInvalidSession, err)

	// other session still alive
	_, err = p.Authenticate(ctx, created.Token)
	assert.NoError(t, err)
}

func TestLocalProvider_AuthenticateExpired(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t)
	now := time.Now()
	p.now = func() time.Time { return now.Add(-2 * time.Hour) }

	id, err := p.CreateIdentity(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	rec := new(recorder)
	p.Subscribe(rec.listen)
	p.now = func() time.Time { return now }
	_, err = p.Authenticate(ctx, id.Token)
	assert.Equal(t, ErrInvalidSession, err)

	// the expired session is ended and reported
	assert.Equal(t, 0, store.Len(SessionsCollection))
	assert.Equal(t, []EventKind{IdentityAbsent}, rec.kinds())
	_, err = p.Authenticate(ctx, id.Token)
	assert.Equal(t, ErrInvalidSession, err)
	assert.Len(t, rec.kinds(), 1)
}

func TestLocalProvider_SessionExpiry(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProviderTTL(t, 50*time.Millisecond)
	rec := new(recorder)
	p.Subscribe(rec.listen)

	id, err := p.CreateIdentity(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)
	kept, err := p.VerifyIdentity(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, p.DestroySession(ctx, kept.SessionID))

	assert.Eventually(t, func() bool { return store.Len(SessionsCollection) == 0 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(rec.kinds()) == 4 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []EventKind{IdentityPresent, IdentityPresent, IdentityAbsent, IdentityAbsent}, rec.kinds())
	rec.mu.Lock()
	assert.Equal(t, id.SessionID, rec.events[3].Identity.SessionID)
	rec.mu.Unlock()

	_, err = p.Authenticate(ctx, id.Token)
	assert.Equal(t, ErrInvalidSession, err)
}

func TestLocalProvider_Events(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)
	rec := new(recorder)
	sub := p.Subscribe(rec.listen)

	id, err := p.CreateIdentity(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, p.DestroySession(ctx, id.SessionID))
	require.NoError(t, p.DestroySession(ctx, id.SessionID)) // unknown session: no event

	assert.Equal(t, []EventKind{IdentityPresent, IdentityAbsent}, rec.kinds())
	rec.mu.Lock()
	assert.Equal(t, id.SessionID, rec.events[1].Identity.SessionID)
	assert.Equal(t, id.UID, rec.events[1].Identity.UID)
	rec.mu.Unlock()

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, err = p.VerifyIdentity(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)
	assert.Len(t, rec.kinds(), 2)
}

func TestLocalProvider_ResetPassword(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)
	_, err := p.CreateIdentity(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, ErrWeakPassword, p.ResetPassword(ctx, "parent@example.com", "123"))
	assert.Equal(t, ErrInvalidCredentials, p.ResetPassword(ctx, "nobody@example.com", "newsecret123"))
	require.NoError(t, p.ResetPassword(ctx, "parent@example.com", "newsecret123"))

	_, err = p.VerifyIdentity(ctx, "parent@example.com", "secret123")
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = p.VerifyIdentity(ctx, "parent@example.com", "newsecret123")
	assert.NoError(t, err)
}
