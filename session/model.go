package session

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is the subset of a web session the governor depends on.
type Record struct {
	Cookie   json.RawMessage `json:"cookie,omitempty"`
	Meta     *Meta           `json:"meta,omitempty"`
	Passport *Passport       `json:"passport,omitempty"`
}

// Meta is the login metadata attached to a session when it is created.
type Meta struct {
	// Datetime is the creation time in Unix milliseconds.
	Datetime int64  `json:"datetime"`
	IP       string `json:"ip"`
	UUID     string `json:"uuid"`
	Browser  string `json:"browser,omitempty"`
	Version  string `json:"version,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// Passport carries the authenticated account. User is nil for anonymous
// sessions.
type Passport struct {
	User *AccountRef `json:"user,omitempty"`
}

// AccountRef is an account id as written by the web tier, which may be a
// JSON number or a numeric string.
type AccountRef struct {
	raw   string
	value int64
	valid bool
}

// NewAccountRef returns a reference to account.
func NewAccountRef(account int64) *AccountRef {
	return &AccountRef{raw: strconv.FormatInt(account, 10), value: account, valid: true}
}

// Int64 returns the numeric account id and false when the stored value does
// not parse as an integer.
func (a *AccountRef) Int64() (int64, bool) {
	if a == nil {
		return 0, false
	}
	return a.value, a.valid
}

func (a *AccountRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = AccountRef{}
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}

	*a = AccountRef{raw: raw}
	a.value, a.valid = parseLeadingInt(raw)
	return nil
}

func (a AccountRef) MarshalJSON() ([]byte, error) {
	if a.valid {
		return []byte(strconv.FormatInt(a.value, 10)), nil
	}
	return json.Marshal(a.raw)
}

// parseLeadingInt reads the integer prefix of s, so "12" and "12.0" both
// yield 12 while "abc" is rejected.
func parseLeadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Account returns the authenticated account of the record. ok is false when
// the record has no passport.user or it is not numeric.
func (r *Record) Account() (account int64, ok bool) {
	if r == nil || r.Passport == nil || r.Passport.User == nil {
		return 0, false
	}
	return r.Passport.User.Int64()
}

// BelongsTo reports whether the record authenticates as account.
func (r *Record) BelongsTo(account int64) bool {
	got, ok := r.Account()
	return ok && got == account
}

// UUID returns meta.uuid or "".
func (r *Record) UUID() string {
	if r == nil || r.Meta == nil {
		return ""
	}
	return r.Meta.UUID
}

// CreatedAt returns meta.datetime as a time.
func (r *Record) CreatedAt() time.Time {
	if r == nil || r.Meta == nil {
		return time.Time{}
	}
	return time.UnixMilli(r.Meta.Datetime)
}
