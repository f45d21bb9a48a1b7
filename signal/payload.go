package signal

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// A Payload is an object carried by a Signal. Writing a payload hands it over
// to the signal and reading it hands it over to the reader.
type Payload any

// Traceable payloads expose the fields that signal traces record.
type Traceable interface {
	// Cookies returns the hierarchical identifiers of the payload.
	Cookies() []uint32

	// Color returns the trace color of the payload.
	Color() uint32

	// Info returns a free form description of the payload.
	Info() string
}

// MaxCookies is the depth of the cookie stack of an Object.
const MaxCookies = 8

// An Object is an embeddable base for payloads that want to show up in
// signal traces with their own identity. Cookies form a stack: a box that
// creates a new object from a parent copies the parent cookies and pushes
// its own.
type Object struct {
	cookies []uint32
	color   uint32
	info    string
}

// Cookies returns the cookie stack, outermost first.
func (o *Object) Cookies() []uint32 {
	return o.cookies
}

// AddCookie pushes a new cookie.
func (o *Object) AddCookie(cookie uint32) {
	if len(o.cookies) >= MaxCookies {
		log.Panicf("object cannot hold more than %d cookies", MaxCookies)
	}

	o.cookies = append(o.cookies, cookie)
}

// SetCookie replaces the innermost cookie, or pushes one if there is none.
func (o *Object) SetCookie(cookie uint32) {
	if len(o.cookies) == 0 {
		o.AddCookie(cookie)
		return
	}

	o.cookies[len(o.cookies)-1] = cookie
}

// RemoveCookie pops the innermost cookie.
func (o *Object) RemoveCookie() {
	if len(o.cookies) == 0 {
		log.Panic("object has no cookie to remove")
	}

	o.cookies = o.cookies[:len(o.cookies)-1]
}

// CopyParentCookies replaces the cookie stack with a copy of the parent's.
func (o *Object) CopyParentCookies(parent Traceable) {
	o.cookies = append(o.cookies[:0], parent.Cookies()...)
}

// Color returns the trace color.
func (o *Object) Color() uint32 {
	return o.color
}

// SetColor sets the trace color.
func (o *Object) SetColor(color uint32) {
	o.color = color
}

// Info returns the info string.
func (o *Object) Info() string {
	return o.info
}

// SetInfo sets the info string.
func (o *Object) SetInfo(info string) {
	o.info = info
}

// FormatPayload renders a payload the way trace files record it:
// cookies separated by colons, the color, and the info string in quotes if
// there is one. Payloads that are not Traceable use cookie 0, color 0 and
// their default formatting as info.
func FormatPayload(p Payload) string {
	t, ok := p.(Traceable)
	if !ok {
		return "0;0;\"" + sanitizeInfo(fmt.Sprint(p)) + "\""
	}

	var b strings.Builder

	cookies := t.Cookies()
	if len(cookies) == 0 {
		b.WriteString("0")
	}

	for i, c := range cookies {
		if i > 0 {
			b.WriteByte(':')
		}

		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}

	b.WriteByte(';')
	b.WriteString(strconv.FormatUint(uint64(t.Color()), 10))

	if info := t.Info(); info != "" {
		b.WriteString(";\"")
		b.WriteString(sanitizeInfo(info))
		b.WriteByte('"')
	}

	return b.String()
}

var infoReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\"", "'")

func sanitizeInfo(info string) string {
	return infoReplacer.Replace(info)
}
