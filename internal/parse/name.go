package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// MaxAssetNameLength bounds asset names in runes.
const MaxAssetNameLength = 256

var spaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)

// AssetName normalises a raw asset name: surrounding whitespace is trimmed
// and inner runs of whitespace (including full-width spaces) collapse to one
// space. Empty or whitespace-only input is rejected.
func AssetName(raw string) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return "", errors.Newf("asset name must not be empty")
	}
	if !utf8.ValidString(s) {
		return "", errors.Newf("asset name is not valid UTF-8: %q", raw)
	}
	if n := utf8.RuneCountInString(s); n > MaxAssetNameLength {
		return "", errors.Newf("asset name is too long (%d > %d characters)", n, MaxAssetNameLength)
	}
	return s, nil
}
