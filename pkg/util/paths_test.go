package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathSegment(t *testing.T) {
	cases := map[string]string{
		"boardcore":    "boardcore",
		" Board:Core ": "Board-Core",
		"a/b\\c":       "a-b-c",
		"name. ":       "name",
		"  ":           "boardcore",
		"...":          "boardcore",
		"nul\x00name":  "nulname",
	}
	for in, want := range cases {
		assert.Equal(t, want, pathSegment(in), "input %q", in)
	}
}
