package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/preschool/apps/api/echo"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/user"
)

func Test_chatApi_ask(t *testing.T) {
	app := setup(t)
	app.CreateAccount(t, "Ms. Mehta", "mehta@test.cd", teacherPwd, user.RoleTeacher, "")
	teacher := app.Login(t, "mehta@test.cd", teacherPwd)

	tests := []httpTest{
		{name: "Auth required", body: []byte(`{"message": "hi"}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Empty message", token: teacher.Token, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "Blank message", token: teacher.Token, body: []byte(`{"message": "   "}`), wantCode: http.StatusBadRequest},
		{
			name: "Replied", token: teacher.Token, body: []byte(`{"message": "When is snack time?"}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, ChatResponse{Reply: "Snack time is at 10:30."}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/chat", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Equal(t, []string{"When is snack time?"}, app.chatMessages())
}

func Test_chatApi_widget(t *testing.T) {
	app := setup(t)
	app.CreateAccount(t, "Asha Mom", "mom@test.cd", parentPwd, user.RoleParent, "S001")
	app.CreateAccount(t, "Ms. Mehta", "mehta@test.cd", teacherPwd, user.RoleTeacher, "")
	parent := app.Login(t, "mom@test.cd", parentPwd)
	teacher := app.Login(t, "mehta@test.cd", teacherPwd)

	t.Run("Parents only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/chat/widget", teacher.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Mounted once", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req, rec := newAuthRequest(http.MethodGet, "/v1/chat/widget", parent.Token)
			app.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var status chat.WidgetStatus
			unmarshal(t, rec, &status)
			assert.Equal(t, chat.WidgetMounted, status.State)
			assert.Empty(t, status.Message)
			assert.Equal(t, chat.WidgetTarget, status.Config.Target)
			assert.Equal(t, chat.WidgetMode, status.Config.Mode)
			assert.True(t, status.Config.ShowWelcomeScreen)
			assert.Equal(t, chat.InitialMessages, status.Config.InitialMessages)
		}

		sess, ok := app.dashboards.Get(parent.SessionID)
		require.True(t, ok)
		assert.Equal(t, 1, sess.Widget.Mounts())
	})

	t.Run("Unmounted on logout", func(t *testing.T) {
		sess, _ := app.dashboards.Get(parent.SessionID)
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", parent.Token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, chat.WidgetUnmounted, sess.Widget.Status().State)
	})
}
