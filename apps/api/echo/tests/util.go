package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/preschool/apps/api/echo"
	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/calendar"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/sheets"
	"github.com/trezcool/preschool/core/user"
	"github.com/trezcool/preschool/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

const (
	scriptPath  = "/chat.bundle.es.js"
	webhookPath = "/webhook"
)

// testApp is a server wired on in-memory storage and fake spreadsheet & chat servers.
type testApp struct {
	*testutil.Accounts
	server     *Server
	gate       *user.Gate
	dashboards *dashboard.Registry
	sheets     *testutil.Sheets

	mu       sync.Mutex
	messages []string // received by the chat webhook
}

func setup(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{
		Accounts: testutil.NewAccounts(t),
		sheets:   testutil.NewSheets(t, testutil.StudentsCSV, testutil.AttendanceCSV),
	}

	chatSrv := httptest.NewServer(http.HandlerFunc(app.serveChat))
	t.Cleanup(chatSrv.Close)

	conf := core.NewTestConfig()
	conf.Sheets.StudentURL = app.sheets.StudentsURL()
	conf.Sheets.AttendanceURL = app.sheets.AttendanceURL()
	conf.Chat = core.ChatConfig{
		WebhookURL:    chatSrv.URL + webhookPath,
		ScriptURL:     chatSrv.URL + scriptPath,
		StylesheetURL: chatSrv.URL + "/style.css",
	}

	fetcher, err := sheets.NewFetcher(conf.Sheets.StudentURL, conf.Sheets.AttendanceURL, conf.Sheets.Timeout, app.Logger)
	if err != nil {
		t.Fatalf("sheets.NewFetcher() failed: %v", err)
	}
	chatClient, err := chat.NewClient(conf.Chat.WebhookURL, conf.Sheets.Timeout, app.Logger)
	if err != nil {
		t.Fatalf("chat.NewClient() failed: %v", err)
	}

	app.gate = user.NewGate(app.Provider, app.Service, app.Logger)
	initial := calendar.YearMonth{Year: conf.Dashboard.InitialYear, Month: conf.Dashboard.InitialMonth}
	app.dashboards = dashboard.NewRegistry(app.Provider, fetcher, initial, chat.NewWidgetConfig(conf.Chat), conf.Sheets.Timeout, app.Logger)
	t.Cleanup(func() {
		app.dashboards.Shutdown()
		app.gate.Close()
	})

	app.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         app.Logger,
		Identities:     app.Provider,
		UserSvc:        app.Service,
		Gate:           app.gate,
		Dashboards:     app.dashboards,
		Chat:           chatClient,
		DisableReqLogs: true,
	})
	return app
}

func (app *testApp) serveChat(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case scriptPath:
		w.Header().Set("Content-Type", "text/javascript")
		_, _ = w.Write([]byte("export function createChat() {}"))
	case webhookPath:
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		app.mu.Lock()
		app.messages = append(app.messages, body.Message)
		app.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply": "Snack time is at 10:30."}`))
	default:
		http.NotFound(w, r)
	}
}

func (app *testApp) chatMessages() []string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return append([]string(nil), app.messages...)
}

func (app *testApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app.server.ServeHTTP(w, r)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
