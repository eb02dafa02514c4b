// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	t.Parallel()
	value := map[string]int{"zebra": 1, "apple": 2, "mango": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same map should encode to identical bytes")
	}
}

func TestUnmarshalDefaultMapType(t *testing.T) {
	t.Parallel()
	data, err := Marshal(map[string]any{"name": "lantern", "count": int64(3)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded to %T, want map[string]any", decoded)
	}
	if m["name"] != "lantern" {
		t.Errorf("name: got %v", m["name"])
	}
}

func TestStreamRoundTrip(t *testing.T) {
	t.Parallel()
	type record struct {
		Seq  int    `cbor:"seq"`
		Body string `cbor:"body"`
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := 0; i < 3; i++ {
		if err := enc.Encode(record{Seq: i, Body: "entry"}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i := 0; i < 3; i++ {
		var got record
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got.Seq != i || got.Body != "entry" {
			t.Errorf("record %d: %+v", i, got)
		}
	}
	var extra record
	if err := dec.Decode(&extra); err != io.EOF {
		t.Errorf("Decode past end: got %v, want io.EOF", err)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	t.Parallel()
	data, err := Marshal(map[string]any{"known": "yes", "extra": "ignored"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		Known string `cbor:"known"`
	}
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Known != "yes" {
		t.Errorf("known: got %q", decoded.Known)
	}
}
