package requestgen

import (
	"bufio"
	"bytes"
	"io"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	request, err := stdhttp.ReadRequest(bufio.NewReader(bytes.NewReader(Generate("hello", 5))))
	require.NoError(t, err)
	require.Equal(t, "/hello", request.URL.Path)
	require.Equal(t, "localhost", request.Host)
	require.Len(t, request.Header, 4)
}

func TestGenerateChunked(t *testing.T) {
	body := strings.Repeat("abc", 100)
	request, err := stdhttp.ReadRequest(bufio.NewReader(bytes.NewReader(GenerateChunked("", 3, body, 64))))
	require.NoError(t, err)
	require.Equal(t, []string{"chunked"}, request.TransferEncoding)

	got, err := io.ReadAll(request.Body)
	require.NoError(t, err)
	require.Equal(t, body, string(got))
}
