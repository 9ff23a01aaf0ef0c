package identity

import (
	"context"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/preschool/core"
)

const (
	CredentialsCollection = "credentials"
	SessionsCollection    = "sessions"

	minPasswordLen = 6
	signingMethod  = "HS256"
	expireTimeout  = 10 * time.Second
)

type (
	credentials struct {
		UID          string    `json:"uid"`
		Email        string    `json:"email"`
		PasswordHash []byte    `json:"password_hash"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	session struct {
		UID       string    `json:"uid"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}
)

// LocalProvider is a Provider keeping bcrypt hashed credentials and sessions in a core.DocumentStore.
// Session tokens are HS256 signed JWTs.
type LocalProvider struct {
	store   core.DocumentStore
	issuer  string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	hashPwd func(pwd []byte) ([]byte, error)

	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener

	timersMu sync.Mutex
	closed   bool
	timers   map[string]*time.Timer // {sessionID: expiry}
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(store core.DocumentStore, issuer, secretKey string, ttl time.Duration) (*LocalProvider, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(store, "store"),
		vala.StringNotEmpty(secretKey, "secretKey"),
	).Check(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LocalProvider{
		store:     store,
		issuer:    issuer,
		secret:    []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
		hashPwd:   func(pwd []byte) ([]byte, error) { return bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost) },
		listeners: make(map[uint64]Listener),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// SecretKey returns the key session tokens are signed with.
func (p *LocalProvider) SecretKey() []byte { return p.secret }

func (p *LocalProvider) CreateIdentity(ctx context.Context, email, password string) (Identity, error) {
	email = core.CleanString(email, true /* lower */)
	if len(password) < minPasswordLen {
		return Identity{}, ErrWeakPassword
	}

	doc, err := p.store.Get(ctx, CredentialsCollection, email)
	if err != nil {
		return Identity{}, errors.Wrap(err, "getting credentials")
	}
	if doc.Exists() {
		return Identity{}, ErrIdentityExists
	}

	hash, err := p.hashPwd([]byte(password))
	if err != nil {
		return Identity{}, errors.Wrap(err, "hashing password")
	}
	now := p.now().UTC()
	creds := credentials{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = p.store.Create(ctx, CredentialsCollection, email, creds); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return Identity{}, ErrIdentityExists
		}
		return Identity{}, errors.Wrap(err, "storing credentials")
	}
	return p.openSession(ctx, creds)
}

func (p *LocalProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	creds, err := p.getCredentials(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	if err = bcrypt.CompareHashAndPassword(creds.PasswordHash, []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return p.openSession(ctx, creds)
}

func (p *LocalProvider) Authenticate(ctx context.Context, tokenStr string) (Identity, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		if isExpired(err) && claims.Id != "" {
			if err = p.DestroySession(ctx, claims.Id); err != nil {
				return Identity{}, err
			}
		}
		return Identity{}, ErrInvalidSession
	}

	doc, err := p.store.Get(ctx, SessionsCollection, claims.Id)
	if err != nil {
		return Identity{}, errors.Wrap(err, "getting session")
	}
	if !doc.Exists() {
		return Identity{}, ErrInvalidSession
	}
	var sess session
	if err = doc.DataTo(&sess); err != nil {
		return Identity{}, errors.Wrap(err, "decoding session")
	}
	if sess.UID != claims.Subject {
		return Identity{}, ErrInvalidSession
	}
	if !p.now().Before(sess.ExpiresAt) {
		if err = p.DestroySession(ctx, claims.Id); err != nil {
			return Identity{}, err
		}
		return Identity{}, ErrInvalidSession
	}
	p.arm(claims.Id, sess.ExpiresAt) // sessions opened before a restart
	return Identity{
		UID:       sess.UID,
		Email:     sess.Email,
		SessionID: claims.Id,
		Token:     tokenStr,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

func (p *LocalProvider) DestroySession(ctx context.Context, sessionID string) error {
	p.disarm(sessionID)
	doc, err := p.store.Get(ctx, SessionsCollection, sessionID)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	if !doc.Exists() {
		return nil
	}
	var sess session
	if err = doc.DataTo(&sess); err != nil {
		return errors.Wrap(err, "decoding session")
	}
	if err = p.store.Delete(ctx, SessionsCollection, sessionID); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	p.publish(Event{
		Kind:     IdentityAbsent,
		Identity: Identity{UID: sess.UID, Email: sess.Email, SessionID: sessionID, ExpiresAt: sess.ExpiresAt},
	})
	return nil
}

func (p *LocalProvider) ResetPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	creds, err := p.getCredentials(ctx, email)
	if err != nil {
		return err
	}
	if creds.PasswordHash, err = p.hashPwd([]byte(password)); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	creds.UpdatedAt = p.now().UTC()
	return errors.Wrap(p.store.Set(ctx, CredentialsCollection, creds.Email, creds), "storing credentials")
}

func (p *LocalProvider) Subscribe(l Listener) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = l
	return &subscription{provider: p, id: id}
}

func (p *LocalProvider) getCredentials(ctx context.Context, email string) (credentials, error) {
	email = core.CleanString(email, true /* lower */)
	doc, err := p.store.Get(ctx, CredentialsCollection, email)
	if err != nil {
		return credentials{}, errors.Wrap(err, "getting credentials")
	}
	if !doc.Exists() {
		return credentials{}, ErrInvalidCredentials
	}
	var creds credentials
	if err = doc.DataTo(&creds); err != nil {
		return credentials{}, errors.Wrap(err, "decoding credentials")
	}
	return creds, nil
}

func (p *LocalProvider) openSession(ctx context.Context, creds credentials) (Identity, error) {
	now := p.now()
	sess := session{
		UID:       creds.UID,
		Email:     creds.Email,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(p.ttl).UTC(),
	}
	sessionID := uuid.New().String()

	token, err := p.generateToken(sessionID, sess, now)
	if err != nil {
		return Identity{}, err
	}
	if err = p.store.Set(ctx, SessionsCollection, sessionID, sess); err != nil {
		return Identity{}, errors.Wrap(err, "storing session")
	}
	p.arm(sessionID, sess.ExpiresAt)

	id := Identity{
		UID:       creds.UID,
		Email:     creds.Email,
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}
	p.publish(Event{Kind: IdentityPresent, Identity: id})
	return id, nil
}

// generateToken generates a signed JWT token string for the session.
func (p *LocalProvider) generateToken(sessionID string, sess session, now time.Time) (string, error) {
	claims := &Claims{
		Email: sess.Email,
		StandardClaims: jwt.StandardClaims{
			Id:        sessionID,
			Issuer:    p.issuer,
			Subject:   sess.UID,
			IssuedAt:  now.Unix(),
			ExpiresAt: sess.ExpiresAt.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.GetSigningMethod(signingMethod), claims)
	ss, err := token.SignedString(p.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Close stops the session expiry timers. Sessions outliving it end on their next Authenticate.
func (p *LocalProvider) Close() {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()
	p.closed = true
	for sid, t := range p.timers {
		t.Stop()
		delete(p.timers, sid)
	}
}

// arm ends the session once it expires, so that observers tear down what they hold for it.
func (p *LocalProvider) arm(sessionID string, expiresAt time.Time) {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()
	if _, ok := p.timers[sessionID]; ok || p.closed {
		return
	}
	p.timers[sessionID] = time.AfterFunc(expiresAt.Sub(p.now()), func() {
		ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
		defer cancel()
		// on failure the session document stays, and the next Authenticate retries
		_ = p.DestroySession(ctx, sessionID)
	})
}

func (p *LocalProvider) disarm(sessionID string) {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()
	if t, ok := p.timers[sessionID]; ok {
		t.Stop()
		delete(p.timers, sessionID)
	}
}

// isExpired tells whether a token failed validation only because it expired.
func isExpired(err error) bool {
	var vErr *jwt.ValidationError
	return errors.As(err, &vErr) && vErr.Errors == jwt.ValidationErrorExpired
}

// publish notifies the listeners outside of the lock so that they may (un)subscribe.
func (p *LocalProvider) publish(evt Event) {
	p.mu.RLock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.RUnlock()

	for _, l := range listeners {
		l(evt)
	}
}

type subscription struct {
	provider *LocalProvider
	id       uint64
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		delete(s.provider.listeners, s.id)
		s.provider.mu.Unlock()
	})
}
