package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/user"
	"github.com/trezcool/preschool/tests"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	acc := testutil.NewAccounts(t)
	acc.CreateAccount(t, "Asha", "asha@example.com", "Sunflower#42", user.RoleParent, "S001")

	widgetConf := chat.NewWidgetConfig(core.ChatConfig{WebhookURL: "https://example.com/webhook"})
	reg := NewRegistry(acc.Provider, newFetcher(), october, widgetConf, time.Second, acc.Logger)
	defer reg.Shutdown()

	id := acc.Login(t, "asha@example.com", "Sunflower#42")
	s := reg.Open(id.SessionID, "S001")
	assert.Same(t, s, reg.Open(id.SessionID, "S001"))
	require.NoError(t, s.View.Mount(ctx))
	assert.Equal(t, chat.WidgetMounted, s.Widget.Mount(ctx).State)

	other := acc.Login(t, "asha@example.com", "Sunflower#42")
	reg.Open(other.SessionID, "S001")
	assert.Equal(t, 2, reg.Len())

	// session end unmounts its dashboard only
	require.NoError(t, acc.Provider.DestroySession(ctx, id.SessionID))
	_, ok := reg.Get(id.SessionID)
	assert.False(t, ok)
	assert.Equal(t, StateUnmounted, s.View.State())
	assert.Equal(t, chat.WidgetUnmounted, s.Widget.Status().State)
	assert.Equal(t, 1, reg.Len())

	reg.Shutdown()
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_SessionExpiry(t *testing.T) {
	ctx := context.Background()
	acc := testutil.NewAccountsTTL(t, 250*time.Millisecond)
	acc.CreateAccount(t, "Asha", "asha@example.com", "Sunflower#42", user.RoleParent, "S001")

	gate := user.NewGate(acc.Provider, acc.Service, acc.Logger)
	defer gate.Close()
	widgetConf := chat.NewWidgetConfig(core.ChatConfig{WebhookURL: "https://example.com/webhook"})
	reg := NewRegistry(acc.Provider, newFetcher(), october, widgetConf, time.Second, acc.Logger)
	defer reg.Shutdown()

	id := acc.Login(t, "asha@example.com", "Sunflower#42")
	sess, err := gate.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.ViewParent, sess.View)
	s := reg.Open(id.SessionID, "S001")
	require.NoError(t, s.View.Mount(ctx))

	assert.Eventually(t, func() bool { return reg.Len() == 0 && gate.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateUnmounted, s.View.State())
	assert.Equal(t, chat.WidgetUnmounted, s.Widget.Status().State)
	assert.Equal(t, 0, acc.Store.Len("sessions"))
}
