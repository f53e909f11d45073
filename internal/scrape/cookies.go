package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Cookie is one entry of a cookies.json file, as exported by browser
// automation tools.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// LoadCookies reads a cookie file holding either a list of cookies or a
// single cookie object. Entries without a name, value or domain key are
// skipped and counted. A missing file yields no cookies and no error.
func LoadCookies(path string) (cookies []Cookie, skipped int, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read cookies: %w", err)
	}

	var raw []map[string]json.RawMessage
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var one map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, 0, fmt.Errorf("parse cookies %s: %w", path, err)
		}
		raw = append(raw, one)
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("parse cookies %s: %w", path, err)
	}

	for _, entry := range raw {
		if !hasKeys(entry, "name", "value", "domain") {
			skipped++
			continue
		}
		b, _ := json.Marshal(entry)
		var c Cookie
		if err := json.Unmarshal(b, &c); err != nil {
			skipped++
			continue
		}
		cookies = append(cookies, c)
	}
	return cookies, skipped, nil
}

func hasKeys(m map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

// SaveCookies writes cookies as a JSON list.
func SaveCookies(path string, cookies []Cookie) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cookie dir: %w", err)
		}
	}
	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func toParams(cookies []Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	return params
}

func fromProto(list []*proto.NetworkCookie) []Cookie {
	out := make([]Cookie, 0, len(list))
	for _, c := range list {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}

// SetCookies installs cookies into the browser session of page.
func SetCookies(page *rod.Page, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return page.SetCookies(toParams(cookies))
}

// PageCookies returns the cookies visible to page.
func PageCookies(page *rod.Page) ([]Cookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	return fromProto(res.Cookies), nil
}
