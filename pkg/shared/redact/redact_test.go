package redact

import "testing"

func TestRedactJSON(t *testing.T) {
	got := RedactJSON(`{"token":"s3cret","nested":{"Authorization":"Bearer x"},"keep":1}`)
	want := `{"keep":1,"nested":{"Authorization":"***"},"token":"***"}`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	if RedactJSON("not json") != "not json" {
		t.Fatalf("non-json input must pass through")
	}
}

func TestPacket(t *testing.T) {
	if got := Packet(`40{"token":"s3cret"}`); got != `40{"token":"***"}` {
		t.Fatalf("got %s", got)
	}
	if got := Packet("40"); got != "40" {
		t.Fatalf("got %s", got)
	}
}

func TestMap(t *testing.T) {
	in := map[string]string{"authToken": "abc", "serverUrl": "http://x", "token": ""}
	out := Map(in)
	if out["authToken"] != Mask || out["serverUrl"] != "http://x" || out["token"] != "" {
		t.Fatalf("unexpected %v", out)
	}
	if in["authToken"] != "abc" {
		t.Fatalf("input mutated")
	}
}
