package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Content types written on the device port.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Response is a complete HTTP/1.1 response for one request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	// Allow is sent as the Allow header when non-empty.
	Allow string
}

// Text builds a 200 plain text response.
func Text(body string) Response {
	return Response{Status: http.StatusOK, ContentType: ContentTypeText, Body: []byte(body)}
}

// JSON builds a 200 JSON response from v.
func JSON(v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return Response{Status: http.StatusOK, ContentType: ContentTypeJSON, Body: body}, nil
}

// HTML builds a 200 HTML response.
func HTML(body []byte) Response {
	return Response{Status: http.StatusOK, ContentType: ContentTypeHTML, Body: body}
}

// ErrorResponse renders err as a plain text response with its mapped status.
// Errors that are not *Error are reported as hardware faults.
func ErrorResponse(err error) Response {
	rerr, ok := err.(*Error)
	if !ok {
		rerr = errHardware(err)
	}
	resp := Response{
		Status:      rerr.Status(),
		ContentType: ContentTypeText,
		Body:        []byte(rerr.Message),
	}
	if rerr.Code == ErrCodeUnsupportedMethod {
		resp.Allow = http.MethodGet
	}
	return resp
}

// WriteTo writes the status line, headers and body to w.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, http.StatusText(r.Status))
	buf.WriteString("Content-Type: " + r.ContentType + "\r\n")
	buf.WriteString("Content-Length: " + strconv.Itoa(len(r.Body)) + "\r\n")
	if r.Allow != "" {
		buf.WriteString("Allow: " + r.Allow + "\r\n")
	}
	buf.WriteString("Connection: close\r\n")
	buf.WriteString("Access-Control-Allow-Origin: *\r\n")
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.WriteTo(w)
}
