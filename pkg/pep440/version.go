// Package pep440 parses public version identifiers and defines a strict
// total order over them. The order follows the public-versioning scheme:
// dev releases sort before pre-releases, pre-releases before the final
// release, post releases after it, and local segments break remaining ties.
//
// Parsing never fails: a string that matches no recognized shape yields an
// "unknown" version. Unknown versions sort after every known version and
// compare among themselves by raw text, so the order stays total.
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// componentSentinel stands in for a numeric component that did not fit a
// number (e.g. overflow). It compares strictly greater than any parsed
// numeric component, deterministically, instead of being dropped.
const componentSentinel = int(^uint(0) >> 1)

var versionPattern = regexp.MustCompile(
	`^v?` +
		`(?:(\d+)!)?` + // epoch
		`(\d+(?:\.\d+)*)` + // release
		`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` + // pre
		`(?:(?:-(\d+))|(?:[-_.]?(post|rev|r)[-_.]?(\d*)))?` + // post
		`(?:[-_.]?(dev)[-_.]?(\d*))?` + // dev
		`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`, // local
)

type localSegment struct {
	num     int
	str     string
	numeric bool
}

// Version is a parsed version identifier. The zero value is unknown.
type Version struct {
	raw     string
	known   bool
	epoch   int
	release []int
	preTag  string
	pre     int
	hasPre  bool
	post    int
	hasPost bool
	dev     int
	hasDev  bool
	local   []localSegment
}

// Parse interprets s as a public version identifier. It always returns a
// usable Version; check Unknown to see whether s matched.
func Parse(s string) Version {
	raw := s
	s = strings.ToLower(strings.TrimSpace(s))
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{raw: raw}
	}

	v := Version{raw: raw, known: true}
	if m[1] != "" {
		v.epoch = parseComponent(m[1])
	}
	for _, part := range strings.Split(m[2], ".") {
		v.release = append(v.release, parseComponent(part))
	}
	if m[3] != "" {
		v.hasPre = true
		v.preTag = canonicalPreTag(m[3])
		if m[4] != "" {
			v.pre = parseComponent(m[4])
		}
	}
	if m[5] != "" { // implicit post: "1.0-1"
		v.hasPost = true
		v.post = parseComponent(m[5])
	} else if m[6] != "" {
		v.hasPost = true
		if m[7] != "" {
			v.post = parseComponent(m[7])
		}
	}
	if m[8] != "" {
		v.hasDev = true
		if m[9] != "" {
			v.dev = parseComponent(m[9])
		}
	}
	if m[10] != "" {
		for _, part := range strings.FieldsFunc(m[10], func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		}) {
			if n, err := strconv.Atoi(part); err == nil {
				v.local = append(v.local, localSegment{num: n, numeric: true})
			} else {
				v.local = append(v.local, localSegment{str: part})
			}
		}
	}
	return v
}

func canonicalPreTag(tag string) string {
	switch tag {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	}
	return tag
}

func parseComponent(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return componentSentinel
	}
	return n
}

// Unknown reports whether the version carries no parsed structure.
func (v Version) Unknown() bool { return !v.known }

// IsPreRelease reports whether the version is a dev or pre-release.
func (v Version) IsPreRelease() bool { return v.hasPre || v.hasDev }

// Raw returns the original input string.
func (v Version) Raw() string { return v.raw }

// String renders the canonical spelling, or the raw input when unknown.
func (v Version) String() string {
	if !v.known {
		return v.raw
	}
	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	for i, r := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(r))
	}
	if v.hasPre {
		fmt.Fprintf(&b, "%s%d", v.preTag, v.pre)
	}
	if v.hasPost {
		fmt.Fprintf(&b, ".post%d", v.post)
	}
	if v.hasDev {
		fmt.Fprintf(&b, ".dev%d", v.dev)
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		for i, seg := range v.local {
			if i > 0 {
				b.WriteByte('.')
			}
			if seg.numeric {
				b.WriteString(strconv.Itoa(seg.num))
			} else {
				b.WriteString(seg.str)
			}
		}
	}
	return b.String()
}

// MarshalJSON renders the version as its string form.
func (v Version) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, v.String()), nil
}

// UnmarshalJSON re-parses the string form.
func (v *Version) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	*v = Parse(s)
	return nil
}

// Compare returns -1, 0 or 1 as a orders before, equal to or after b.
func Compare(a, b Version) int {
	if a.known != b.known {
		// unknown sorts after every known version
		if a.known {
			return -1
		}
		return 1
	}
	if !a.known {
		return strings.Compare(a.raw, b.raw)
	}
	if c := cmpInt(a.epoch, b.epoch); c != 0 {
		return c
	}
	if c := cmpRelease(a.release, b.release); c != 0 {
		return c
	}
	if c := cmpPre(a, b); c != 0 {
		return c
	}
	if c := cmpPost(a, b); c != 0 {
		return c
	}
	if c := cmpDev(a, b); c != 0 {
		return c
	}
	return cmpLocal(a.local, b.local)
}

// Compare orders v against other; see the package-level Compare.
func (v Version) Compare(other Version) int { return Compare(v, other) }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpRelease compares release tuples numerically, padding the shorter one
// with zeros: 2.10 > 2.9, 1.0 == 1.0.0.
func cmpRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if c := cmpInt(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// cmpPre implements the pre-release slot: a plain dev release sorts before
// any pre-release, and the final release sorts after all of them.
func cmpPre(a, b Version) int {
	ra, ta, na := preRank(a)
	rb, tb, nb := preRank(b)
	if c := cmpInt(ra, rb); c != 0 {
		return c
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return cmpInt(na, nb)
}

// preRank maps the pre slot onto (-1, 0, 1): below all pre-releases, a
// pre-release proper, or the final release.
func preRank(v Version) (rank int, tag string, num int) {
	switch {
	case !v.hasPre && !v.hasPost && v.hasDev:
		return -1, "", 0
	case !v.hasPre:
		return 1, "", 0
	}
	return 0, v.preTag, v.pre
}

func cmpPost(a, b Version) int {
	switch {
	case a.hasPost && b.hasPost:
		return cmpInt(a.post, b.post)
	case a.hasPost:
		return 1
	case b.hasPost:
		return -1
	}
	return 0
}

func cmpDev(a, b Version) int {
	switch {
	case a.hasDev && b.hasDev:
		return cmpInt(a.dev, b.dev)
	case a.hasDev:
		return -1
	case b.hasDev:
		return 1
	}
	return 0
}

// cmpLocal compares local segments pairwise; numeric segments sort after
// alphanumeric ones, and a longer segment list wins a shared prefix.
func cmpLocal(a, b []localSegment) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		as, bs := a[i], b[i]
		if as.numeric != bs.numeric {
			if as.numeric {
				return 1
			}
			return -1
		}
		if as.numeric {
			if c := cmpInt(as.num, bs.num); c != 0 {
				return c
			}
			continue
		}
		if c := strings.Compare(as.str, bs.str); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}
