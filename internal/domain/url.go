package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// URL is a url.URL that serializes as a JSON string.
type URL struct {
	*url.URL
}

func ParseURL(text string) (u URL, err error) {
	p, err := url.Parse(text)
	u = URL{p}
	return
}

func (u URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *URL) UnmarshalJSON(data []byte) (err error) {
	var text string
	err = json.Unmarshal(data, &text)
	if err != nil {
		return
	}
	*u, err = ParseURL(text)
	return
}

func (u URL) String() string {
	if u.URL == nil {
		return ""
	}
	return u.URL.String()
}

func (u URL) Clone() URL {
	if u.URL == nil {
		return URL{}
	}
	inner := *u.URL
	return URL{&inner}
}

func (u URL) ModifyQuery(mod func(query url.Values)) URL {
	newURL := u.Clone()
	query := newURL.Query()
	mod(query)
	newURL.RawQuery = query.Encode()
	return newURL
}

func (u URL) WithPageOffset(offset int) URL {
	return u.ModifyQuery(func(query url.Values) {
		query.Set("page[offset]", fmt.Sprint(offset))
	})
}
