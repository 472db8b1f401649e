package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	logx "mimicbot/pkg/logx"
)

// clientFor points a Client at a test server.
func clientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return New(Config{Address: host, Port: port}, logx.Nop())
}

func kindOf(t *testing.T, err error) FailKind {
	t.Helper()
	var cerr *CallError
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v is not a CallError", err)
	}
	return cerr.Kind
}

func TestPokeOK(t *testing.T) {
	t.Parallel()
	var gotAction string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"status":"ok","retcode":0}`))
	}))
	defer srv.Close()

	c := clientFor(t, srv)
	if err := c.Poke(context.Background(), "1001", "42"); err != nil {
		t.Fatalf("poke: %v", err)
	}
	if gotAction != "/group_poke" {
		t.Fatalf("action = %q, want /group_poke", gotAction)
	}
	if gotBody["group_id"] != "1001" || gotBody["user_id"] != "42" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestSetCardRejectsNonOKStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","retcode":100,"message":"no permission"}`))
	}))
	defer srv.Close()

	err := clientFor(t, srv).SetCard(context.Background(), "1001", "42", "name")
	if kindOf(t, err) != FailStatus {
		t.Fatalf("kind = %v, want FailStatus", kindOf(t, err))
	}
}

func TestMemberInfoDecodesNumericIDs(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["no_cache"] != true {
			t.Errorf("no_cache = %v, want true", body["no_cache"])
		}
		_, _ = w.Write([]byte(`{"status":"ok","data":{"user_id":123456,"card":"c","nickname":"n","role":"admin"}}`))
	}))
	defer srv.Close()

	m, err := clientFor(t, srv).MemberInfo(context.Background(), "1001", "123456")
	if err != nil {
		t.Fatalf("member info: %v", err)
	}
	if m.UserID != "123456" || m.Card != "c" || m.Nickname != "n" || !m.IsAdmin() {
		t.Fatalf("member = %+v", m)
	}
}

func TestMemberInfoStringIDs(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":{"user_id":"123456","nickname":"n","role":"member"}}`))
	}))
	defer srv.Close()

	m, err := clientFor(t, srv).MemberInfo(context.Background(), "1001", "123456")
	if err != nil {
		t.Fatalf("member info: %v", err)
	}
	if m.UserID != "123456" || m.IsAdmin() {
		t.Fatalf("member = %+v", m)
	}
}

func TestMemberInfoNullData(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":null}`))
	}))
	defer srv.Close()

	_, err := clientFor(t, srv).MemberInfo(context.Background(), "1001", "42")
	if kindOf(t, err) != FailEmpty {
		t.Fatalf("kind = %v, want FailEmpty", kindOf(t, err))
	}
}

func TestMalformedBodyIsDecodeFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<!doctype html>`))
	}))
	defer srv.Close()

	_, err := clientFor(t, srv).MemberInfo(context.Background(), "1001", "42")
	if kindOf(t, err) != FailDecode {
		t.Fatalf("kind = %v, want FailDecode", kindOf(t, err))
	}
}

func TestHTTPErrorStatusIsNetworkFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := clientFor(t, srv).Poke(context.Background(), "1001", "42")
	if kindOf(t, err) != FailNetwork {
		t.Fatalf("kind = %v, want FailNetwork", kindOf(t, err))
	}
}

func TestUnreachableServerIsNetworkFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := clientFor(t, srv)
	srv.Close()

	err := c.Poke(context.Background(), "1001", "42")
	if kindOf(t, err) != FailNetwork {
		t.Fatalf("kind = %v, want FailNetwork", kindOf(t, err))
	}
}

func TestGroupsList(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_group_list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"ok","data":[{"group_id":1001,"group_name":"alpha"},{"group_id":"2002","group_name":"beta"}]}`))
	}))
	defer srv.Close()

	gs, err := clientFor(t, srv).Groups(context.Background())
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(gs) != 2 || gs[0].GroupID != "1001" || gs[1].GroupID != "2002" {
		t.Fatalf("groups = %v", gs)
	}
	if gs[0].Display() != "alpha(1001)" {
		t.Fatalf("display = %q", gs[0].Display())
	}
}
