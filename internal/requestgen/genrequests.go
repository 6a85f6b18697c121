package requestgen

import (
	"strconv"
	"strings"
)

// Headers returns n header pairs, flattened. The last one is always Host.
func Headers(n int) (hdrs []string) {
	for i := 0; i < n-1; i++ {
		hdrs = append(hdrs, "some-random-header-name-nobody-cares-about"+strconv.Itoa(i), strings.Repeat("b", 100))
	}

	return append(hdrs, "Host", "localhost")
}

func HeadersBlock(hdrs []string) (buff []byte) {
	for i := 0; i+1 < len(hdrs); i += 2 {
		buff = append(buff, hdrs[i]+": "+hdrs[i+1]+"\r\n"...)
	}

	return buff
}

// Generate returns a GET request with n headers.
func Generate(uri string, n int) (request []byte) {
	request = append(request, "GET /"+uri+" HTTP/1.1\r\n"...)
	request = append(request, HeadersBlock(Headers(n))...)

	return append(request, '\r', '\n')
}

// GenerateChunked returns a POST request with n headers and the body split into
// chunks of chunkSize bytes.
func GenerateChunked(uri string, n int, body string, chunkSize int) (request []byte) {
	hdrs := append(Headers(n-1), "Transfer-Encoding", "chunked")

	request = append(request, "POST /"+uri+" HTTP/1.1\r\n"...)
	request = append(request, HeadersBlock(hdrs)...)
	request = append(request, '\r', '\n')

	for len(body) > 0 {
		chunk := body[:min(chunkSize, len(body))]
		body = body[len(chunk):]
		request = strconv.AppendUint(request, uint64(len(chunk)), 16)
		request = append(request, "\r\n"+chunk+"\r\n"...)
	}

	return append(request, "0\r\n\r\n"...)
}
