// Package flow defines the captured-traffic record that the view layers
// operate on: a request/response pair with a unique id, a marked flag and an
// optional kill capability for flows that are still live in the intercept
// engine.
package flow

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is the request half of a captured flow.
type Request struct {
	Method  string    `json:"method"`
	URL     string    `json:"url"`
	Host    string    `json:"host"`
	Path    string    `json:"path"`
	Start   time.Time `json:"start,omitempty"`
	Content []byte    `json:"content,omitempty"`
}

// Response is the response half of a captured flow. It is nil until the
// origin has answered.
type Response struct {
	Status  int    `json:"status"`
	Content []byte `json:"content,omitempty"`
}

// Flow is one unit of captured traffic. The id is unique and immutable for
// the lifetime of the flow; every other field may change as the flow
// progresses through the intercept engine.
type Flow struct {
	ID       string    `json:"id"`
	Marked   bool      `json:"marked,omitempty"`
	TLS      bool      `json:"is_tls,omitempty"`
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`

	// kill aborts the live upstream transaction, if there still is one.
	// Not serialized; copies and loaded flows are never killable.
	kill func()
}

// New returns an empty flow with a fresh id.
func New() *Flow {
	return &Flow{ID: uuid.NewString()}
}

// Make builds a synthetic flow for the given method and URL, the way the
// "create" command does. The method is upper-cased; host and path are
// derived from the URL.
func Make(method, rawurl string) (*Flow, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawurl, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", rawurl)
	}
	f := New()
	f.TLS = u.Scheme == "https"
	f.Request = &Request{
		Method: strings.ToUpper(method),
		URL:    rawurl,
		Host:   u.Host,
		Path:   u.Path,
		Start:  time.Now(),
	}
	return f, nil
}

// Copy returns a deep copy of the flow under a fresh id. The copy is not
// killable: it has no live transaction behind it.
func (f *Flow) Copy() *Flow {
	c := &Flow{
		ID:     uuid.NewString(),
		Marked: f.Marked,
		TLS:    f.TLS,
	}
	if f.Request != nil {
		req := *f.Request
		req.Content = append([]byte(nil), f.Request.Content...)
		c.Request = &req
	}
	if f.Response != nil {
		resp := *f.Response
		resp.Content = append([]byte(nil), f.Response.Content...)
		c.Response = &resp
	}
	return c
}

// SetKiller attaches the kill capability for a live flow.
func (f *Flow) SetKiller(fn func()) { f.kill = fn }

// Killable reports whether the flow still has a live transaction that can
// be aborted.
func (f *Flow) Killable() bool { return f.kill != nil }

// Kill aborts the live transaction and clears the capability. No-op for
// flows that are not killable.
func (f *Flow) Kill() {
	if f.kill != nil {
		f.kill()
		f.kill = nil
	}
}

// Size returns the combined request and response payload length in bytes.
// Absent halves count as zero.
func (f *Flow) Size() int64 {
	var s int64
	if f.Request != nil {
		s += int64(len(f.Request.Content))
	}
	if f.Response != nil {
		s += int64(len(f.Response.Content))
	}
	return s
}
