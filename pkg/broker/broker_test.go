package broker

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/docvoice/roomlink/pkg/api"
	"github.com/docvoice/roomlink/pkg/config"
	"github.com/docvoice/roomlink/pkg/credential"
	"github.com/docvoice/roomlink/pkg/logger"
	"github.com/goccy/go-json"
)

func newTestBroker(t *testing.T, key, secret, url string) *httptest.Server {
	t.Helper()
	conf := config.Broker{RoomPrefix: config.DefaultRoomPrefix, TokenTTL: time.Hour}
	conf.Media.Url = url
	conf.Media.ApiKey = key
	conf.Media.ApiSecret = secret
	conf.Cors.Origins = []string{"http://localhost:5173"}
	b := &Broker{conf: conf, minter: NewMinter(key, secret, conf.TokenTTL), log: logger.NewWriter(io.Discard)}
	server := httptest.NewServer(b.Handler())
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url string, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestIssue(t *testing.T) {
	server := newTestBroker(t, "key", "secret", "wss://media.example.com")
	autoName := regexp.MustCompile(`^rag-room-[0-9a-f]{8}$`)

	tests := []struct {
		path string
		body string
		room func(string) bool
	}{
		{
			path: api.CreateRoomAndTokenPath,
			body: `{"participant_name":"Ann","room_name":"team"}`,
			room: func(r string) bool { return r == "team" },
		},
		{
			path: api.CreateRoomAndTokenPath,
			body: `{"participant_name":"Ann"}`,
			room: autoName.MatchString,
		},
		{
			path: api.GetTokenPath,
			body: `{"participant_name":" Bob ","room_name":"  "}`,
			room: autoName.MatchString,
		},
	}
	for _, test := range tests {
		code, data := post(t, server.URL+test.path, test.body)
		if code != http.StatusOK {
			t.Errorf("%v: unexpected status %v %s", test.body, code, data)
			continue
		}
		var resp api.CredentialResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Errorf("%v: %v", test.body, err)
			continue
		}
		if !test.room(resp.RoomName) {
			t.Errorf("%v: unexpected room %q", test.body, resp.RoomName)
		}
		if resp.WsUrl != "wss://media.example.com" || resp.Token == "" {
			t.Errorf("%v: unexpected response %+v", test.body, resp)
		}
		claims, err := NewMinter("key", "secret", time.Hour).Verify(resp.Token)
		if err != nil {
			t.Errorf("%v: %v", test.body, err)
			continue
		}
		if claims.Video.Room != resp.RoomName {
			t.Errorf("%v: the token is for another room %v", test.body, claims.Video.Room)
		}
	}
}

func TestIssueErrors(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		url    string
		path   string
		body   string
		code   int
		detail string
	}{
		{
			name: "empty participant", key: "key", url: "ws://media", path: api.CreateRoomAndTokenPath,
			body: `{"participant_name":"  "}`, code: http.StatusUnprocessableEntity, detail: "participant_name is required",
		},
		{
			name: "bad body", key: "key", url: "ws://media", path: api.CreateRoomAndTokenPath,
			body: `{`, code: http.StatusUnprocessableEntity, detail: "Invalid request body",
		},
		{
			name: "no key", url: "ws://media", path: api.CreateRoomAndTokenPath,
			body: `{"participant_name":"Ann"}`, code: http.StatusInternalServerError,
			detail: "Failed to create room and token: " + ErrNoSigningKey.Error(),
		},
		{
			name: "no url", key: "key", path: api.GetTokenPath,
			body: `{"participant_name":"Ann"}`, code: http.StatusInternalServerError,
			detail: "Failed to generate token: " + ErrNoMediaUrl.Error(),
		},
	}
	for _, test := range tests {
		server := newTestBroker(t, test.key, "secret", test.url)
		code, data := post(t, server.URL+test.path, test.body)
		if code != test.code {
			t.Errorf("%v: got status %v, want %v", test.name, code, test.code)
		}
		var resp api.ErrorResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Errorf("%v: %v", test.name, err)
			continue
		}
		if detail, _ := resp.DetailText(); detail != test.detail {
			t.Errorf("%v: got detail %q, want %q", test.name, detail, test.detail)
		}
	}
}

func TestHealthAndRoot(t *testing.T) {
	server := newTestBroker(t, "key", "secret", "ws://media")

	resp, err := http.Get(server.URL + api.HealthPath)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var health api.HealthResponse
	err = json.NewDecoder(resp.Body).Decode(&health)
	_ = resp.Body.Close()
	if err != nil || health.Status != api.HealthyStatus || health.Service != ServiceName {
		t.Errorf("unexpected health %+v %v", health, err)
	}

	resp, err = http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected root status %v", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + api.CreateRoomAndTokenPath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("unexpected status %v for GET", resp.StatusCode)
	}
}

func TestCors(t *testing.T) {
	server := newTestBroker(t, "key", "secret", "ws://media")

	for origin, allowed := range map[string]bool{"http://localhost:5173": true, "http://evil.example": false} {
		rq, _ := http.NewRequest(http.MethodOptions, server.URL+api.CreateRoomAndTokenPath, nil)
		rq.Header.Set("Origin", origin)
		rq.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rq.Header.Set("Access-Control-Request-Headers", "content-type")
		resp, err := http.DefaultClient.Do(rq)
		if err != nil {
			t.Fatalf("options: %v", err)
		}
		_ = resp.Body.Close()
		got := resp.Header.Get("Access-Control-Allow-Origin")
		if allowed && (got != origin || resp.StatusCode != http.StatusNoContent) {
			t.Errorf("%v: expected preflight, got %v %q", origin, resp.StatusCode, got)
		}
		if !allowed && got != "" {
			t.Errorf("%v: shouldn't be allowed", origin)
		}
	}
}

// The client and the broker agree on the wire format.
func TestWithClient(t *testing.T) {
	server := newTestBroker(t, "key", "secret", "wss://media.example.com")
	client, err := credential.New(server.URL, credential.WithLogger(logger.NewWriter(io.Discard)))
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	cred, err := client.RequestCredential(context.Background(), "Ann", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !cred.IsValid() || cred.TransportURL != "wss://media.example.com" {
		t.Errorf("unexpected credential %+v", cred)
	}

	if _, err = client.RequestCredential(context.Background(), "", "team"); err == nil {
		t.Errorf("expected an error for an empty participant")
	}
	if err = client.Health(context.Background()); err != nil {
		t.Errorf("health: %v", err)
	}
}
