package user

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/preschool/core"
)

// ProfilesCollection holds one profile document per identity UID.
const ProfilesCollection = "users"

// Roles
const (
	RoleTeacher = "teacher"
	RoleParent  = "parent"
)

var AllRoles = []string{RoleTeacher, RoleParent}

// Profile is created at signup and read at every login.
type Profile struct {
	UID       string      `json:"uid"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      string      `json:"role"`
	StudentID null.String `json:"student_id"` // parents only
	CreatedAt time.Time   `json:"created_at"` // UTC
}

var _ core.Person = Profile{}

func (p Profile) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Profile) IsParent() bool  { return p.Role == RoleParent }

// HasStudent reports whether the profile is linked to a student.
func (p Profile) HasStudent() bool { return p.StudentID.Valid && p.StudentID.String != "" }

func (p Profile) PersonID() string    { return p.UID }
func (p Profile) PersonName() string  { return p.Name }
func (p Profile) PersonEmail() string { return p.Email }

// Signup contains information needed to create a new account.
type Signup struct {
	Name      string `json:"name" validate:"required,notblank_"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required,role"`
	StudentID string `json:"student_id" validate:"omitempty,max=64,alphanum_"`
}

// Clean trims the inputs. The student ID is only kept for parents.
func (s *Signup) Clean() {
	s.Name = core.CleanString(s.Name)
	s.Email = core.CleanString(s.Email, true /* lower */)
	s.Role = core.CleanString(s.Role, true /* lower */)
	s.StudentID = core.CleanString(s.StudentID)
	if s.Role != RoleParent {
		s.StudentID = ""
	}
}

func (s Signup) Profile(uid string, now time.Time) Profile {
	p := Profile{
		UID:       uid,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		CreatedAt: now.UTC(),
	}
	if s.StudentID != "" {
		p.StudentID = null.StringFrom(s.StudentID)
	}
	return p
}

type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Clean() {
	l.Email = core.CleanString(l.Email, true /* lower */)
}

type ResetPassword struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}
