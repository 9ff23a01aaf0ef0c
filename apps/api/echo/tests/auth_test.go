package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/preschool/apps/api/echo"
	"github.com/trezcool/preschool/core/user"
)

const (
	parentPwd  = "Kindergarten#2025"
	teacherPwd = "Crayons&Glue-42"
)

func Test_authApi_signup(t *testing.T) {
	app := setup(t)
	app.CreateAccount(t, "Taken", "taken@test.cd", parentPwd, user.RoleParent, "S002")

	tests := []struct {
		name       string
		body       []byte
		wantCode   int
		wantFields []string
	}{
		{name: "Empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantFields: []string{"name", "email", "password", "role"}},
		{
			name:       "Invalid email & role",
			body:       []byte(`{"name": "Zed", "email": "zed", "password": "` + parentPwd + `", "role": "admin"}`),
			wantCode:   http.StatusBadRequest,
			wantFields: []string{"email", "role"},
		},
		{
			name:       "Weak password",
			body:       []byte(`{"name": "Zed", "email": "zed@test.cd", "password": "12345678", "role": "parent"}`),
			wantCode:   http.StatusBadRequest,
			wantFields: []string{"password"},
		},
		{
			name:       "Email taken",
			body:       []byte(`{"name": "Zed", "email": "TAKEN@test.cd", "password": "` + parentPwd + `", "role": "parent"}`),
			wantCode:   http.StatusBadRequest,
			wantFields: []string{"email"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/signup", tt.body)
			app.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var fields map[string]string
			unmarshal(t, rec, &fields)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}

	t.Run("Parent signed up", func(t *testing.T) {
		body := []byte(`{"name": "Asha's Mom", "email": " Mom@Test.cd ", "password": "` + parentPwd + `", "role": "parent", "student_id": "S001"}`)
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp SignupResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, user.SignupSuccessMessage, resp.Message)
		assert.Equal(t, "mom@test.cd", resp.Profile.Email)
		assert.Equal(t, user.RoleParent, resp.Profile.Role)
		assert.Equal(t, "S001", resp.Profile.StudentID.String)
		assert.NotEmpty(t, resp.Token)

		p, err := app.Service.GetProfile(context.Background(), resp.Profile.UID)
		require.NoError(t, err)
		assert.Equal(t, resp.Profile.Name, p.Name)

		sent := app.Mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "mom@test.cd", sent[0].To[0].Address)
	})

	t.Run("Teacher student id is dropped", func(t *testing.T) {
		body := []byte(`{"name": "Ms. Mehta", "email": "mehta@test.cd", "password": "` + teacherPwd + `", "role": "teacher", "student_id": "S001"}`)
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp SignupResponse
		unmarshal(t, rec, &resp)
		assert.False(t, resp.Profile.StudentID.Valid)
	})
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	parent := app.CreateAccount(t, "Asha Mom", "mom@test.cd", parentPwd, user.RoleParent, "S001")
	teacher := app.CreateAccount(t, "Ms. Mehta", "mehta@test.cd", teacherPwd, user.RoleTeacher, "")
	ghost, err := app.Provider.CreateIdentity(context.Background(), "ghost@test.cd", parentPwd) // no profile
	require.NoError(t, err)
	require.NoError(t, app.Provider.DestroySession(context.Background(), ghost.SessionID))

	body := func(email, pwd string) []byte {
		return marchallObj(t, user.Login{Email: email, Password: pwd})
	}
	invalidCreds := marchallObj(t, httpErr{Error: "invalid email or password"})

	tests := []httpTest{
		{name: "Empty credentials", body: body("", ""), wantCode: http.StatusBadRequest},
		{name: "Unknown email", body: body("nobody@test.cd", parentPwd), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{name: "Wrong password", body: body(parent.Email, "nope-nope"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{
			name: "Missing profile", body: body("ghost@test.cd", parentPwd), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user profile not found"}),
		},
		{name: "Parent", body: body("MOM@test.cd", parentPwd), wantCode: http.StatusOK, extra: user.ViewParent},
		{name: "Teacher", body: body(teacher.Email, teacherPwd), wantCode: http.StatusOK, extra: user.ViewTeacher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				unmarshal(t, rec, &resp)
				assert.Equal(t, tt.extra, resp.View)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}

	assert.Equal(t, 2, app.Store.Len("sessions"), "the session of the identity without profile is closed")
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)
	app.CreateAccount(t, "Asha Mom", "mom@test.cd", parentPwd, user.RoleParent, "S001")
	id := app.Login(t, "mom@test.cd", parentPwd)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Logged out", token: id.Token, wantCode: http.StatusNoContent},
		{
			name: "Session is gone", token: id.Token, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
