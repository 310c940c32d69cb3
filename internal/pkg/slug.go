package pkg

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 80

// Slugify 转成 URL 安全的 slug：去掉重音符号，非字母数字折叠成 '-'
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > maxSlugLen {
		out = strings.TrimSuffix(out[:maxSlugLen], "-")
	}
	return out
}

// SlugSuffix 追加一个 6 位随机后缀
func SlugSuffix(slug string) string {
	return slug + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
