package models

import (
	"fmt"
	"strings"
)

// KeyPrefix represents the type of rate limit key.
type KeyPrefix string

const (
	KeyPrefixIP   KeyPrefix = "ip"
	KeyPrefixUser KeyPrefix = "user"
)

// Key is a value object encapsulating rate limit bucket key construction.
// It centralizes key format and sanitization to prevent key collision
// attacks.
type Key struct {
	prefix     KeyPrefix
	identifier string
	rule       string
}

// NewKey creates a rate limit key scoped to a rule name.
func NewKey(prefix KeyPrefix, identifier, rule string) Key {
	return Key{
		prefix:     prefix,
		identifier: sanitizeKeySegment(identifier),
		rule:       rule,
	}
}

// String returns the formatted key for storage lookup, under the "rl:"
// namespace shared with no other subsystem.
func (k Key) String() string {
	return fmt.Sprintf("rl:%s:%s:%s", k.prefix, k.identifier, k.rule)
}

// JoinIdentifier composes a multi-segment identifier for NewKey. Each
// segment is escaped on its own before joining, so a delimiter embedded
// in one segment (an IPv6 source such as "::1", or a crafted email
// containing ':') cannot shift the segment boundary and collide with a
// different segment split.
func JoinIdentifier(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = sanitizeKeySegment(segment)
	}
	return strings.Join(escaped, ":")
}

// sanitizeKeySegment escapes delimiter characters in key segments so a
// user-controlled identifier containing ':' cannot collide with an
// adjacent bucket.
//
// Escape rules (order matters):
//  1. Escape '_' to '__' (escape the escape character first)
//  2. Escape ':' to '_c' (escape the delimiter)
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
