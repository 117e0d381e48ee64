package variables

import (
	"reflect"
	"testing"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewStore(nil)
	store.Set("username", "john")
	store.Set("token", "abc123")

	value, ok := store.Get("username")
	if !ok {
		t.Fatal("expected to find 'username' key")
	}
	if value != "john" {
		t.Errorf("expected 'john', got %q", value)
	}

	value, ok = store.Get("missing_key")
	if ok || value != "" {
		t.Errorf("expected missing key to return (\"\", false), got (%q, %v)", value, ok)
	}
}

func TestMemoryStore_SeedIsCopied(t *testing.T) {
	seed := map[string]string{"host": "example.com"}
	store := NewStore(seed)
	store.Set("host", "changed")

	if seed["host"] != "example.com" {
		t.Fatalf("seed map was mutated: %v", seed)
	}
}

func TestMemoryStore_GetAllIsCopy(t *testing.T) {
	store := NewStore(map[string]string{"a": "1"})
	all := store.GetAll()
	all["a"] = "2"

	if v, _ := store.Get("a"); v != "1" {
		t.Fatalf("GetAll returned a live map; store now has %q", v)
	}
}

func TestMemoryStore_Apply(t *testing.T) {
	store := NewStore(map[string]string{"name": "plan", "keep": "yes"})
	store.Apply(map[string]string{"name": "row", "id": "7"})

	want := map[string]string{"name": "row", "keep": "yes", "id": "7"}
	if got := store.GetAll(); !reflect.DeepEqual(got, want) {
		t.Errorf("GetAll() = %v, want %v", got, want)
	}
}

func TestExpand(t *testing.T) {
	vars := map[string]string{"host": "example.com", "id": "42", "empty": ""}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"single", "https://${host}/", "https://example.com/"},
		{"multiple", "${host}/users/${id}", "example.com/users/42"},
		{"adjacent", "${id}${id}", "4242"},
		{"unknown kept", "${missing}/${id}", "${missing}/42"},
		{"empty value", "[${empty}]", "[]"},
		{"unterminated", "${host", "${host"},
		{"dollar without brace", "$host ${host}", "$host example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.template, vars); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestMemoryStore_Expand(t *testing.T) {
	store := NewStore(nil)
	store.Set("token", "abc")
	if got := store.Expand("Bearer ${token}"); got != "Bearer abc" {
		t.Errorf("Expand() = %q", got)
	}
}
