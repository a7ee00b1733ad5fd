package core

import "github.com/google/uuid"

// StableHash returns a deterministic UUIDv5 of the input text, stable across
// calls and process restarts. It is used to content-address post items so
// duplicate inserts of the same text collapse onto the same key.
func StableHash(input string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(input)).String()
}
