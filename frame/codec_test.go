package frame_test

import (
	"encoding/json"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/momentics/hioload-rpc/frame"
)

func TestParseRequest(t *testing.T) {
	f, err := frame.Parse([]byte(`{"id":42,"method":"Echo","args":{"x":1}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsRequest() || f.IsResponse() {
		t.Fatalf("expected request shape, got %+v", f)
	}
	if f.ID != 42 || f.Method != "Echo" {
		t.Fatalf("unexpected fields: %+v", f)
	}
}

func TestParseResponse(t *testing.T) {
	f, err := frame.Parse([]byte(`{"id":7,"result":{"ok":true}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsResponse() {
		t.Fatalf("expected response shape, got %+v", f)
	}
}

func TestParseIllFormed(t *testing.T) {
	cases := [][]byte{
		[]byte(`[]`),
		[]byte(`{"foo":"bar"}`),
		[]byte(`{"method":"","id":0}`),
		[]byte(`not json`),
	}
	for _, c := range cases {
		if _, err := frame.Parse(c); err == nil {
			t.Errorf("expected ill-formed error for %s", c)
		}
	}
}

func TestSerializeOrderAndDefaults(t *testing.T) {
	f := frame.NewRequest(1, "Echo", jsoniter.RawMessage(`{"x":1}`), false)
	f.Dst = "peer1"
	b, err := frame.Serialize(f, "self")
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["src"] != "self" {
		t.Errorf("expected default src applied, got %v", m["src"])
	}
	if m["dst"] != "peer1" || m["method"] != "Echo" {
		t.Errorf("unexpected serialized frame: %v", m)
	}
}

func TestRoundTripPreservesQuotedStringResult(t *testing.T) {
	f := frame.NewResult(5, jsoniter.RawMessage(`"hello"`))
	b, err := frame.Serialize(f, "")
	if err != nil {
		t.Fatal(err)
	}
	got, err := frame.Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Result) != `"hello"` {
		t.Fatalf("expected quoted string result preserved, got %s", got.Result)
	}
}

func TestSerializeErrorResponse(t *testing.T) {
	f := frame.NewErrorResponse(9, 404, "No handler for Nope")
	b, err := frame.Serialize(f, "self")
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	errObj, ok := m["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", m)
	}
	if errObj["code"].(float64) != 404 || errObj["message"] != "No handler for Nope" {
		t.Errorf("unexpected error object: %v", errObj)
	}
	if _, present := m["result"]; present {
		t.Errorf("error response must not carry result field")
	}
}
