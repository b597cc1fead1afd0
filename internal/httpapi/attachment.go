package httpapi

import (
	"fmt"
	"net/url"
	"strings"
)

const attachmentExt = ".jmx"

// outputFileName resolves the download name for a conversion response: the
// caller-supplied name when present, otherwise a name derived from the test
// plan name. The empty string means "no attachment header".
func outputFileName(requested, planName string) (string, error) {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = sanitizeBaseName(planName)
	}
	if base == "" {
		return "", nil
	}
	if strings.ContainsAny(base, "\r\n\x00") {
		return "", requestError("INVALID_ARGUMENT", "fileName 含有非法控制字符", "")
	}
	if strings.Contains(base, "/") || strings.Contains(base, "\\") {
		return "", requestError("INVALID_ARGUMENT", "fileName 不允许包含路径分隔符", "")
	}
	if len(base) > 200 {
		return "", requestError("INVALID_ARGUMENT", "fileName 过长", "max=200 bytes")
	}

	if !strings.HasSuffix(strings.ToLower(base), attachmentExt) {
		base += attachmentExt
	}
	return base, nil
}

// sanitizeBaseName turns a free-form plan name into something safe to use as
// a filename. Characters outside a conservative allowlist collapse to '_'.
func sanitizeBaseName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

func contentDispositionAttachment(filename string) string {
	// RFC 6266 + RFC 5987.
	escaped := strings.ReplaceAll(filename, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", escaped, pctEncode(filename))
}

func pctEncode(s string) string {
	// RFC 3986 percent-encoding. Go's QueryEscape uses '+' for spaces, which
	// we rewrite to %20 to avoid ambiguity in filename* values.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
