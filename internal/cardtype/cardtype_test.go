package cardtype

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/resolve"
)

func TestParseIdentifier(t *testing.T) {
	id := ParseIdentifier("someuser/FancyCard")
	assert.True(t, id.IsRemote())
	assert.Equal(t, "someuser", id.Username)
	assert.Equal(t, "FancyCard", id.ClassName)

	local := ParseIdentifier("standard")
	assert.False(t, local.IsRemote())
	assert.Equal(t, "standard", local.String())
}

func TestValidateOptionsRequiredField(t *testing.T) {
	err := ValidateOptions(StandardOptions(), resolve.Recipe{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidRecipe))
}

func TestValidateOptionsTypeMismatch(t *testing.T) {
	err := ValidateOptions(StandardOptions(), resolve.Recipe{
		"source_file": "/tmp/x.jpg", "hide_season_text": "not-a-bool",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidRecipe))
}

func TestLocalRenderInvokesKernel(t *testing.T) {
	var invoked bool
	local := NewLocal("standard", StandardOptions(), func(ctx context.Context, recipe resolve.Recipe) ([]byte, error) {
		invoked = true
		return []byte("card-bytes"), nil
	})

	out, err := local.Render(context.Background(), resolve.Recipe{"source_file": "/tmp/x.jpg"})
	require.NoError(t, err)
	assert.True(t, invoked)
	assert.Equal(t, []byte("card-bytes"), out)
}

func TestLoaderGetUnknownLocalReturnsNil(t *testing.T) {
	loader := NewLoader(zerolog.Nop(), http.DefaultClient, "https://example.invalid", t.TempDir())
	assert.Nil(t, loader.Get(context.Background(), "nonexistent"))
}

func TestLoaderRemoteManifestAndKernelResolution(t *testing.T) {
	RegisterKernel("test-kernel", func(ctx context.Context, recipe resolve.Recipe) ([]byte, error) {
		return []byte("rendered"), nil
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/someuser/FancyCard/manifest.json":
			_ = json.NewEncoder(w).Encode(Manifest{
				Name:   "someuser/FancyCard",
				Kernel: "test-kernel",
				Options: []Option{{Name: "source_file", Required: true, Kind: "string"}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	loader := NewLoader(zerolog.Nop(), server.Client(), server.URL, t.TempDir())
	ct := loader.Get(context.Background(), "someuser/FancyCard")
	require.NotNil(t, ct)

	out, err := ct.Render(context.Background(), resolve.Recipe{"source_file": "/tmp/x.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []byte("rendered"), out)

	// Second Get must hit the cache, not the server again.
	ct2 := loader.Get(context.Background(), "someuser/FancyCard")
	assert.Same(t, ct, ct2)
}

func TestLoaderRemoteUnknownKernelFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Manifest{Name: "x/y", Kernel: "does-not-exist"})
	}))
	defer server.Close()

	loader := NewLoader(zerolog.Nop(), server.Client(), server.URL, t.TempDir())
	assert.Nil(t, loader.Get(context.Background(), "x/y"))
}
