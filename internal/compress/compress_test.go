package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTrip(t *testing.T) {
	content := []byte(strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 200))

	for _, name := range []string{NopName, GZipName, BrotliName, LZ4Name} {
		t.Run(name, func(t *testing.T) {
			codec, err := New(name)
			require.NoError(t, err)
			assert.Equal(t, name, codec.Name())

			encoded, err := codec.Encode(content)
			require.NoError(t, err)
			if name != NopName {
				assert.Less(t, len(encoded), len(content))
			}

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, content, decoded)
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("zstd")
	assert.ErrorIs(t, err, ErrUnknownCodec)

	codec, err := New("")
	require.NoError(t, err)
	assert.Equal(t, NopName, codec.Name())
}
