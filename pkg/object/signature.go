package object

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature identifies who made an object and when. Offset is the timezone
// offset in minutes east of UTC.
type Signature struct {
	Name   string
	Email  string
	When   int64
	Offset int
}

// NewSignature builds a Signature from a wall-clock time, keeping its zone
// offset.
func NewSignature(name, email string, t time.Time) Signature {
	_, offset := t.Zone()
	return Signature{
		Name:   name,
		Email:  email,
		When:   t.Unix(),
		Offset: offset / 60,
	}
}

// Time returns the signature timestamp in its recorded zone.
func (s Signature) Time() time.Time {
	return time.Unix(s.When, 0).In(time.FixedZone("", s.Offset*60))
}

// ErrInvalidIdentity is matched by every *SignatureError.
var ErrInvalidIdentity = errors.New("invalid signature identity")

// SignatureError reports a Name or Email that cannot be written into an
// object header and read back unchanged.
type SignatureError struct {
	Field  string
	Value  string
	Reason string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *SignatureError) Is(target error) bool { return target == ErrInvalidIdentity }

// Validate rejects identities that would not survive String followed by
// ParseSignature: angle brackets delimit the email and a line break ends
// the header.
func (s Signature) Validate() error {
	for _, f := range []struct{ field, value string }{{"name", s.Name}, {"email", s.Email}} {
		if i := strings.IndexAny(f.value, "<>\n\r\x00"); i >= 0 {
			return &SignatureError{Field: f.field, Value: f.value, Reason: fmt.Sprintf("contains %q", f.value[i])}
		}
	}
	return nil
}

// String renders the canonical form "Name <email> unix +hhmm".
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When, formatOffset(s.Offset))
}

// ParseSignature parses the canonical form produced by Signature.String.
func ParseSignature(text string) (Signature, error) {
	open := strings.LastIndexByte(text, '<')
	closing := strings.LastIndexByte(text, '>')
	if open < 0 || closing < open {
		return Signature{}, fmt.Errorf("parse signature %q: missing <email>", text)
	}
	sig := Signature{
		Name:  strings.TrimSuffix(text[:open], " "),
		Email: text[open+1 : closing],
	}

	fields := strings.Fields(text[closing+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("parse signature %q: want timestamp and offset", text)
	}
	when, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("parse signature %q: bad timestamp: %w", text, err)
	}
	offset, err := parseOffset(fields[1])
	if err != nil {
		return Signature{}, fmt.Errorf("parse signature %q: %w", text, err)
	}
	sig.When = when
	sig.Offset = offset
	return sig, nil
}

func formatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d%02d", sign, minutes/60, minutes%60)
}

func parseOffset(s string) (int, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("bad timezone offset %q", s)
	}
	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, fmt.Errorf("bad timezone offset %q", s)
	}
	mins, err := strconv.Atoi(s[3:5])
	if err != nil || mins >= 60 {
		return 0, fmt.Errorf("bad timezone offset %q", s)
	}
	total := hours*60 + mins
	if s[0] == '-' {
		total = -total
	}
	return total, nil
}

// CommitSigningPayload returns the canonical bytes that are signed for a
// commit. The payload intentionally excludes the signature field itself.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	copyCommit := *c
	copyCommit.Signature = ""
	return MarshalCommit(&copyCommit)
}

// NoteSigningPayload is the note equivalent of CommitSigningPayload.
func NoteSigningPayload(n *NoteObj) []byte {
	if n == nil {
		return nil
	}
	copyNote := *n
	copyNote.Signature = ""
	return MarshalNote(&copyNote)
}
