package mention

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker is the reserved non-printable delimiter framing an in-buffer
// mention run: Marker + userID + Marker + displayName + Marker. Only the
// display name is visible when rendering the buffer.
const Marker = '⁣'

var tokenPattern = regexp.MustCompile(`@\[([^:\[\]\n]+):([^\[\]\n]+?)\]`)

type Token struct {
	UserID      string
	DisplayName string
}

func (t Token) Canonical() string {
	return fmt.Sprintf("@[%s:%s]", t.UserID, t.DisplayName)
}

// MarkerRun builds the opaque buffer representation of an inserted mention.
func MarkerRun(userID, displayName string) string {
	return string(Marker) + userID + string(Marker) + displayName + string(Marker)
}

// EncodeMarkers rewrites every complete marker run in the buffer to its
// canonical @[id:name] form. Text outside marker runs passes through
// unchanged; an unterminated run degrades to its visible characters.
func EncodeMarkers(buffer string) string {
	var out strings.Builder
	runes := []rune(buffer)
	for i := 0; i < len(runes); {
		if runes[i] != Marker {
			out.WriteRune(runes[i])
			i++
			continue
		}
		token, consumed, ok := scanMarkerRun(runes[i:])
		if !ok {
			// Broken run: drop the delimiters, keep the characters.
			i++
			continue
		}
		out.WriteString(token.Canonical())
		i += consumed
	}
	return out.String()
}

// DisplayText renders the buffer for the user: marker runs collapse to
// their display names, everything else is literal.
func DisplayText(buffer string) string {
	var out strings.Builder
	runes := []rune(buffer)
	for i := 0; i < len(runes); {
		if runes[i] != Marker {
			out.WriteRune(runes[i])
			i++
			continue
		}
		token, consumed, ok := scanMarkerRun(runes[i:])
		if !ok {
			i++
			continue
		}
		out.WriteString(token.DisplayName)
		i += consumed
	}
	return out.String()
}

func scanMarkerRun(runes []rune) (Token, int, bool) {
	// runes[0] is the opening Marker.
	second := indexRune(runes, 1, Marker)
	if second < 0 {
		return Token{}, 0, false
	}
	third := indexRune(runes, second+1, Marker)
	if third < 0 {
		return Token{}, 0, false
	}
	id := string(runes[1:second])
	name := string(runes[second+1 : third])
	if id == "" || name == "" {
		return Token{}, 0, false
	}
	return Token{UserID: id, DisplayName: name}, third + 1, true
}

func indexRune(runes []rune, from int, r rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// Segment is a slice of rendered content: either literal text or a
// decoded mention token.
type Segment struct {
	Text    string
	Mention *Token
}

// Split decodes canonical content into literal and mention segments.
// Anything that does not match the token pattern stays literal, so
// malformed or partial tokens render as plain text.
func Split(content string) []Segment {
	matches := tokenPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		if content == "" {
			return nil
		}
		return []Segment{{Text: content}}
	}

	var segments []Segment
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segments = append(segments, Segment{Text: content[last:m[0]]})
		}
		segments = append(segments, Segment{
			Text: content[m[0]:m[1]],
			Mention: &Token{
				UserID:      content[m[2]:m[3]],
				DisplayName: content[m[4]:m[5]],
			},
		})
		last = m[1]
	}
	if last < len(content) {
		segments = append(segments, Segment{Text: content[last:]})
	}
	return segments
}

// Tokens returns every mention token embedded in canonical content.
func Tokens(content string) []Token {
	var tokens []Token
	for _, seg := range Split(content) {
		if seg.Mention != nil {
			tokens = append(tokens, *seg.Mention)
		}
	}
	return tokens
}

// IsSelf reports whether the token addresses the viewing user, which is
// when the renderer highlights it.
func (t Token) IsSelf(viewerID string) bool {
	return viewerID != "" && t.UserID == viewerID
}
