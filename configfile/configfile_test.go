package configfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"settings.json", "settings.yaml", "settings.yml", "settings.toml"} {
		t.Run(name, func(t *testing.T) {
			reg, err := NewRegistry([]Definition{{ID: "main", Directory: filepath.Join(dir, "nested", name), File: name}})
			require.NoError(t, err)

			f, err := reg.Get("main")
			require.NoError(t, err)
			require.False(t, f.Exists())

			res := f.SetContent(map[string]any{"size": "large", "toppings": []any{"olive", "basil"}})
			require.False(t, res.HasError, "%v", res.Error)
			require.True(t, f.Exists())

			got := f.GetContent()
			require.False(t, got.HasError, "%v", got.Error)

			data, ok := got.Data.(map[string]any)
			require.True(t, ok, "data is %T", got.Data)
			require.Equal(t, "large", data["size"])
			require.Equal(t, []any{"olive", "basil"}, data["toppings"])
		})
	}
}

func TestDecodeIntoStruct(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"pizza\"\nlimit = 3\n"), 0o644))

	reg, err := NewRegistry([]Definition{{ID: "app", Directory: dir, File: "app.toml"}})
	require.NoError(t, err)
	f, err := reg.Get("app")
	require.NoError(t, err)

	var cfg struct {
		Name  string `toml:"name"`
		Limit int    `toml:"limit"`
	}
	require.NoError(t, f.Decode(&cfg))
	require.Equal(t, "pizza", cfg.Name)
	require.Equal(t, 3, cfg.Limit)
}

func TestGetContentMissingFile(t *testing.T) {
	reg, err := NewRegistry([]Definition{{ID: "x", Directory: t.TempDir(), File: "absent.json"}})
	require.NoError(t, err)
	f, err := reg.Get("x")
	require.NoError(t, err)

	res := f.GetContent()
	require.True(t, res.HasError)
	require.ErrorIs(t, res.Error, os.ErrNotExist)
	require.Nil(t, res.Data)
}

func TestGetContentInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	reg, err := NewRegistry([]Definition{{ID: "bad", Directory: dir, File: "bad.json"}})
	require.NoError(t, err)
	f, _ := reg.Get("bad")

	res := f.GetContent()
	require.True(t, res.HasError)
	require.Contains(t, res.Error.Error(), "parse")
}

func TestNewRegistryRejects(t *testing.T) {
	tests := []struct {
		name  string
		defs  []Definition
		field string
	}{
		{"empty id", []Definition{{File: "a.json"}}, "id"},
		{"duplicate id", []Definition{{ID: "a", File: "a.json"}, {ID: "a", File: "b.json"}}, "id"},
		{"empty file", []Definition{{ID: "a"}}, "file"},
		{"unsupported extension", []Definition{{ID: "a", File: "a.ini"}}, "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs)
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			require.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestUnknownID(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	_, err = reg.Get("nope")
	var ue *UnknownFileError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "nope", ue.ID)
}

func TestHomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	reg, err := NewRegistry([]Definition{
		{ID: "a", Directory: "~/.pizza", File: "config.yaml"},
		{ID: "b", Directory: "~", File: "config.json"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, reg.IDs())

	a, _ := reg.Get("a")
	require.Equal(t, filepath.Join(home, ".pizza", "config.yaml"), a.Path())
	b, _ := reg.Get("b")
	require.Equal(t, filepath.Join(home, "config.json"), b.Path())
}
