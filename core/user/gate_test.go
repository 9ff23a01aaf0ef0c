package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/user"
	"github.com/trezcool/preschool/tests"
)

func TestGate(t *testing.T) {
	ctx := context.Background()
	acc := testutil.NewAccounts(t)
	acc.CreateAccount(t, "Asha", "asha@example.com", "Sunflower#42", user.RoleParent, "S001")
	acc.CreateAccount(t, "Ravi", "ravi@example.com", "Sunflower#42", user.RoleParent, "")
	acc.CreateAccount(t, "Ms. Mehta", "mehta@example.com", "Sunflower#42", user.RoleTeacher, "")

	gate := user.NewGate(acc.Provider, acc.Service, acc.Logger)
	defer gate.Close()

	s, err := gate.Resolve(ctx, identity.Identity{})
	require.NoError(t, err)
	assert.Equal(t, user.ViewLogin, s.View)

	tests := []struct {
		name       string
		email      string
		wantView   user.View
		wantNotice string
	}{
		{name: "parent with student", email: "asha@example.com", wantView: user.ViewParent},
		{name: "parent without student", email: "ravi@example.com", wantView: user.ViewParent, wantNotice: user.StudentNotLinked},
		{name: "teacher", email: "mehta@example.com", wantView: user.ViewTeacher, wantNotice: user.TeacherNotice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := acc.Login(t, tt.email, "Sunflower#42")

			// profile stored as soon as the identity is reported
			p, ok := gate.Profile(id.SessionID)
			require.True(t, ok)
			assert.Equal(t, tt.email, p.Email)

			s, err := gate.Resolve(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantView, s.View)
			assert.Equal(t, tt.wantNotice, s.Notice)
			assert.Equal(t, p.Name, s.Welcome())

			// signed out
			require.NoError(t, acc.Provider.DestroySession(ctx, id.SessionID))
			_, ok = gate.Profile(id.SessionID)
			assert.False(t, ok)
		})
	}
	assert.Equal(t, 0, gate.Len())
}

func TestGate_AdoptsSessionsAndLazyProfiles(t *testing.T) {
	ctx := context.Background()
	acc := testutil.NewAccounts(t)

	// session opened before the gate existed
	acc.CreateAccount(t, "Asha", "asha@example.com", "Sunflower#42", user.RoleParent, "S001")
	id := acc.Login(t, "asha@example.com", "Sunflower#42")

	gate := user.NewGate(acc.Provider, acc.Service, acc.Logger)
	defer gate.Close()

	s, err := gate.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.ViewParent, s.View)
	assert.Equal(t, 1, gate.Len())

	// signup: the identity is reported before the profile is stored
	p, newID, err := acc.Service.Signup(ctx, user.Signup{Name: "Ms. Mehta", Email: "mehta@example.com", Password: "Sunflower#42", Role: user.RoleTeacher})
	require.NoError(t, err)
	_, ok := gate.Profile(newID.SessionID)
	assert.False(t, ok)

	s, err = gate.Resolve(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, user.ViewTeacher, s.View)
	assert.Equal(t, p.UID, s.Profile.UID)
}
