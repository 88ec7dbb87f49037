package router

import (
	"testing"

	"github.com/searchktools/reactor-server/internal/httpwire"
)

func handlerStub(tag *string, value string) HandlerFunc {
	return func(ex *httpwire.Exchange) { *tag = value }
}

func TestExactModeMatchesRegisteredPath(t *testing.T) {
	r := New(ModeExact)
	var got string
	r.Add("/hello", handlerStub(&got, "hello"))

	h, params, ok := r.Find("/hello")
	if !ok {
		t.Fatalf("expected exact match for /hello")
	}
	if params != nil {
		t.Fatalf("expected no params in exact mode, got %v", params)
	}
	h(&httpwire.Exchange{})
	if got != "hello" {
		t.Fatalf("expected handler to run, got %q", got)
	}
}

func TestExactModeMissReturnsNotFound(t *testing.T) {
	r := New(ModeExact)
	_, _, ok := r.Find("/missing")
	if ok {
		t.Fatalf("expected no match for unregistered path")
	}
}

func TestAddAllRegistersBulk(t *testing.T) {
	r := New(ModeExact)
	var a, b string
	r.AddAll(map[string]HandlerFunc{
		"/a": handlerStub(&a, "a"),
		"/b": handlerStub(&b, "b"),
	})

	if _, _, ok := r.Find("/a"); !ok {
		t.Fatalf("expected /a registered")
	}
	if _, _, ok := r.Find("/b"); !ok {
		t.Fatalf("expected /b registered")
	}
}

func TestRadixModeMatchesParam(t *testing.T) {
	r := New(ModeRadixParams)
	var got string
	r.Add("/users/:id", handlerStub(&got, "user"))

	h, params, ok := r.Find("/users/42")
	if !ok {
		t.Fatalf("expected param match for /users/42")
	}
	if params["id"] != "42" {
		t.Fatalf("expected id param 42, got %v", params)
	}
	h(&httpwire.Exchange{})
	if got != "user" {
		t.Fatalf("expected handler invoked")
	}
}

func TestRadixModePrefersExactOverParam(t *testing.T) {
	r := New(ModeRadixParams)
	var exact, param string
	r.Add("/users/:id", handlerStub(&param, "param"))
	r.Add("/users/me", handlerStub(&exact, "exact"))

	h, _, ok := r.Find("/users/me")
	if !ok {
		t.Fatalf("expected a match for /users/me")
	}
	h(&httpwire.Exchange{})
	if exact != "exact" {
		t.Fatalf("expected the exact-registry entry to win over the param route, got exact=%q param=%q", exact, param)
	}
}

func TestRadixModeCatchAll(t *testing.T) {
	r := New(ModeRadixParams)
	var got string
	r.Add("/static/*filepath", handlerStub(&got, "static"))

	h, params, ok := r.Find("/static/css/site.css")
	if !ok {
		t.Fatalf("expected catch-all match")
	}
	if params["filepath"] != "/css/site.css" {
		t.Fatalf("expected filepath param, got %v", params)
	}
	_ = h
}
