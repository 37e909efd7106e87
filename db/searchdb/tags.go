package searchdb

import (
	"encoding/json"
	"strings"

	"github.com/meghashyamc/linkindex/apperrors"
)

// Tags is a set drawn from the fixed tag vocabulary.
type Tags uint8

const (
	TagWiki Tags = 1 << iota
	TagNews
	TagSNS
	TagBlog
	TagForum
	TagShopping
	TagAcademic
	TagTools
)

var vocabulary = []struct {
	tag  Tags
	name string
}{
	{TagWiki, "wiki"},
	{TagNews, "news"},
	{TagSNS, "sns"},
	{TagBlog, "blog"},
	{TagForum, "forum"},
	{TagShopping, "shopping"},
	{TagAcademic, "academic"},
	{TagTools, "tools"},
}

// Vocabulary returns the canonical tag names in bit order.
func Vocabulary() []string {
	names := make([]string, 0, len(vocabulary))
	for _, entry := range vocabulary {
		names = append(names, entry.name)
	}
	return names
}

// ParseTag normalizes a single tag name to its vocabulary entry.
func ParseTag(name string) (Tags, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, entry := range vocabulary {
		if entry.name == normalized {
			return entry.tag, nil
		}
	}
	return 0, apperrors.Newf(apperrors.ErrInvalidTag, "unknown tag '%s', expected one of %s", name, strings.Join(Vocabulary(), ", "))
}

// ParseTags builds a tag set, ignoring blank entries.
func ParseTags(names []string) (Tags, error) {
	var tags Tags
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := ParseTag(name)
		if err != nil {
			return 0, err
		}
		tags |= tag
	}
	return tags, nil
}

// ParseTagList parses a comma-separated tag list such as "wiki,news".
func ParseTagList(list string) (Tags, error) {
	return ParseTags(strings.Split(list, ","))
}

func (t Tags) IsEmpty() bool {
	return t == 0
}

// ContainsAny reports whether t shares at least one tag with other.
func (t Tags) ContainsAny(other Tags) bool {
	return t&other != 0
}

// ContainsAll reports whether every tag of other is present in t.
func (t Tags) ContainsAll(other Tags) bool {
	return t&other == other
}

func (t Tags) Names() []string {
	names := make([]string, 0, len(vocabulary))
	for _, entry := range vocabulary {
		if t&entry.tag != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Names())
}

func (t *Tags) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	tags, err := ParseTags(names)
	if err != nil {
		return err
	}
	*t = tags
	return nil
}
