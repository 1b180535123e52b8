package msgpack

import (
	"bytes"
	"testing"
)

type call struct {
	Method string   `msgpack:"method"`
	Args   []string `msgpack:"args,omitempty"`
}

func TestEncodeDeterministic(t *testing.T) {
	v := map[string]any{"b": 1, "a": []string{"x"}, "c": "z"}

	first, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("expected identical encodings for the same map")
		}
	}
}

func TestDecode(t *testing.T) {
	data, err := Encode([]call{{Method: "where", Args: []string{"a", "=", "1"}}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got []call
	if err := Decode(data, &got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 1 || got[0].Method != "where" || len(got[0].Args) != 3 {
		t.Errorf("unexpected decoded value: %+v", got)
	}

	if err := Decode(nil, &got); err == nil {
		t.Error("expected error for empty data")
	}
}
