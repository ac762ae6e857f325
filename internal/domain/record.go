package domain

import "strings"

// Record is the platform-shaped intermediate result of parsing one message.
// Field names are the platform's own vocabulary; the standardizer reconciles them.
type Record struct {
	Platform Platform
	Status   Status
	Title    string
	Fields   map[string]string
	Extras   map[string]any
}

func NewRecord(p Platform, title string) *Record {
	return &Record{
		Platform: p,
		Status:   StatusUnknown,
		Title:    title,
		Fields:   map[string]string{},
		Extras:   map[string]any{},
	}
}

func (r *Record) Get(name string) string {
	if r == nil {
		return ""
	}
	return r.Fields[name]
}

// Set stores the trimmed value, empty included.
func (r *Record) Set(name, value string) {
	r.Fields[name] = strings.TrimSpace(value)
}

// SetIfEmpty keeps an earlier extraction and only fills a blank field.
func (r *Record) SetIfEmpty(name, value string) {
	if r.Fields[name] == "" {
		r.Set(name, value)
	}
}

func (r *Record) Has(name string) bool { return r.Get(name) != "" }
