package payload

import "testing"

func TestJSONFields_SimpleAndNested(t *testing.T) {
	good := `{
  "a": 1,
  "b": "val",
  "nested": {"k": "v"}
}`
	f := JSONFields([]byte(good))
	if len(f) != 3 {
		t.Fatalf("expected 3 fields, got %#v", f)
	}
	// keys come out sorted per level
	if f[0].Key != "a" || f[0].Value != "1" {
		t.Fatalf("unexpected first field: %#v", f[0])
	}
	if f[1].Key != "b" || f[1].Value != "val" {
		t.Fatalf("unexpected second field: %#v", f[1])
	}
	if f[2].Key != "nested.k" || f[2].Value != "v" {
		t.Fatalf("nested key should use dotted path: %#v", f[2])
	}

	bad := `{"a":` // invalid
	if g := JSONFields([]byte(bad)); g != nil {
		t.Fatalf("expected nil for invalid json, got: %#v", g)
	}
}

func TestJSONFields_ArraysShareParentPath(t *testing.T) {
	f := JSONFields([]byte(`{"hosts": ["a", "b"]}`))
	if len(f) != 2 {
		t.Fatalf("expected 2 fields, got %#v", f)
	}
	for _, x := range f {
		if x.Key != "hosts" {
			t.Fatalf("array elements should keep the parent key: %#v", x)
		}
	}
}

func TestYAMLFields_ScalarsAndStructure(t *testing.T) {
	y := "" +
		"root:\n" +
		"  name: service\n" +
		"  nested:\n" +
		"    key: value\n" +
		"list:\n" +
		"  - item1\n"
	f := YAMLFields([]byte(y))
	if len(f) == 0 {
		t.Fatal("expected some fields for valid yaml")
	}
	// check that a scalar path was captured
	found := false
	for _, x := range f {
		if x.Key == "root.name" && x.Value == "service" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected to find root.name=service in YAMLFields: %#v", f)
	}

	// Do not assert invalid YAML behavior here because many strings are valid YAML scalars
}

func TestFields_Dispatch(t *testing.T) {
	if f := Fields("json", []byte(`{"a":"b"}`)); len(f) != 1 {
		t.Fatalf("json dispatch failed: %#v", f)
	}
	if f := Fields("yaml", []byte("a: b\n")); len(f) != 1 {
		t.Fatalf("yaml dispatch failed: %#v", f)
	}
	if f := Fields("toml", []byte("a = 1")); f != nil {
		t.Fatalf("unknown kind should return nil, got %#v", f)
	}
}

func TestSensitiveKeys(t *testing.T) {
	fields := []Field{
		{Key: "db.host", Value: "localhost"},
		{Key: "db.password", Value: "hunter2"},
		{Key: "API_TOKEN", Value: "abc"},
		{Key: "db.password", Value: "hunter2"}, // duplicate key
		{Key: "comment", Value: "hello"},
	}

	keys := SensitiveKeys(fields)
	if len(keys) != 2 {
		t.Fatalf("expected 2 sensitive keys, got %v", keys)
	}
	if keys[0] != "db.password" || keys[1] != "API_TOKEN" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestSensitiveKeys_NoneFound(t *testing.T) {
	fields := []Field{
		{Key: "width", Value: "800"},
		{Key: "height", Value: "600"},
	}
	if keys := SensitiveKeys(fields); keys != nil {
		t.Fatalf("expected no sensitive keys, got %v", keys)
	}
}
