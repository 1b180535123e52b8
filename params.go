package apiquery

import (
	"net/url"
	"strings"
)

// Param is one query-string entry.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered set of query parameters. Unlike url.Values it keeps
// the order keys first appeared in, so translations are reproducible.
// A repeated key keeps its first position and its last value.
type Params struct {
	items []Param
	index map[string]int
}

// NewParams builds Params from pairs, applying the repeated-key rule.
func NewParams(pairs ...Param) Params {
	var p Params
	for _, pair := range pairs {
		p.set(pair.Key, pair.Value)
	}
	return p
}

// ParseQuery parses a raw URL query string. Pairs whose key or value is not
// valid percent-encoding are skipped, as are pairs with an empty key.
func ParseQuery(rawQuery string) Params {
	var p Params
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil || key == "" {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		p.set(key, value)
	}
	return p
}

func (p *Params) set(key, value string) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[key]; ok {
		p.items[i].Value = value
		return
	}
	p.index[key] = len(p.items)
	p.items = append(p.items, Param{Key: key, Value: value})
}

// Get returns the value of key.
func (p Params) Get(key string) (string, bool) {
	i, ok := p.index[key]
	if !ok {
		return "", false
	}
	return p.items[i].Value, true
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.index[key]
	return ok
}

// All returns the parameters in order. The slice must not be modified.
func (p Params) All() []Param {
	return p.items
}

// Len returns the number of distinct keys.
func (p Params) Len() int {
	return len(p.items)
}
