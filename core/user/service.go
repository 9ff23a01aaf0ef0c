package user

import (
	"context"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/identity"
)

const (
	SignupSuccessMessage = "Signup successful! You can now login."
	welcomeTemplate      = "welcome"
)

var errInvalidData = errors.New("invalid data")

type Service struct {
	identities identity.Provider
	store      core.DocumentStore
	mailSvc    core.EmailService
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	now        func() time.Time
}

func NewService(identities identity.Provider, store core.DocumentStore, mailSvc core.EmailService, logger core.Logger) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(identities, "identities"),
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	validate, translator := NewValidator()
	return &Service{
		identities: identities,
		store:      store,
		mailSvc:    mailSvc,
		logger:     logger,
		validate:   validate,
		translator: translator,
		now:        time.Now,
	}, nil
}

// Validate validates `v` and converts validator errors into a *core.ValidationError.
func (svc *Service) Validate(v interface{}) error {
	err := svc.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return core.NewValidationError(errInvalidData, core.TranslateValidationErrors(verrs, svc.translator)...)
	}
	return err
}

// Signup creates an identity and its profile, then sends a welcome email.
func (svc *Service) Signup(ctx context.Context, s Signup) (Profile, identity.Identity, error) {
	s.Clean()
	if err := svc.Validate(s); err != nil {
		return Profile{}, identity.Identity{}, err
	}

	id, err := svc.identities.CreateIdentity(ctx, s.Email, s.Password)
	switch err {
	case nil:
	case identity.ErrIdentityExists:
		return Profile{}, identity.Identity{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	case identity.ErrWeakPassword:
		return Profile{}, identity.Identity{}, core.NewValidationError(err, core.FieldError{Field: "password", Error: err.Error()})
	default:
		return Profile{}, identity.Identity{}, errors.Wrap(err, "creating identity")
	}

	p := s.Profile(id.UID, svc.now())
	if err = svc.store.Set(ctx, ProfilesCollection, id.UID, p); err != nil {
		return Profile{}, identity.Identity{}, errors.Wrap(err, "storing profile")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:      "Welcome!",
		TemplateName: welcomeTemplate,
		TemplateData: p,
	})
	return p, id, nil
}

// Login verifies the credentials and loads the profile.
// An identity without a profile is signed out again and reported as core.ErrProfileNotFound.
func (svc *Service) Login(ctx context.Context, l Login) (Profile, identity.Identity, error) {
	l.Clean()
	if err := svc.Validate(l); err != nil {
		return Profile{}, identity.Identity{}, err
	}

	id, err := svc.identities.VerifyIdentity(ctx, l.Email, l.Password)
	if err != nil {
		if err == identity.ErrInvalidCredentials {
			return Profile{}, identity.Identity{}, err
		}
		return Profile{}, identity.Identity{}, errors.Wrap(err, "verifying identity")
	}

	p, err := svc.GetProfile(ctx, id.UID)
	if err != nil {
		if dErr := svc.identities.DestroySession(ctx, id.SessionID); dErr != nil {
			svc.logger.Error("destroying session of identity without profile", dErr)
		}
		return Profile{}, identity.Identity{}, err
	}
	return p, id, nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	return errors.Wrap(svc.identities.DestroySession(ctx, sessionID), "destroying session")
}

func (svc *Service) GetProfile(ctx context.Context, uid string) (Profile, error) {
	doc, err := svc.store.Get(ctx, ProfilesCollection, uid)
	if err != nil {
		return Profile{}, errors.Wrap(err, "getting profile")
	}
	if !doc.Exists() {
		return Profile{}, core.ErrProfileNotFound
	}
	var p Profile
	if err = doc.DataTo(&p); err != nil {
		return Profile{}, errors.Wrap(err, "decoding profile")
	}
	if p.UID == "" {
		p.UID = uid
	}
	return p, nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	if err := svc.Validate(rp); err != nil {
		return err
	}
	err := svc.identities.ResetPassword(ctx, rp.Email, rp.Password)
	switch err {
	case nil:
		return nil
	case identity.ErrInvalidCredentials:
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: "no account with this email"})
	case identity.ErrWeakPassword:
		return core.NewValidationError(err, core.FieldError{Field: "password", Error: err.Error()})
	default:
		return errors.Wrap(err, "resetting password")
	}
}
