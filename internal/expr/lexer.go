package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokOp
	tokNewline
)

type token struct {
	kind tokenKind
	text string // identifier, literal source or operator
	str  string // decoded string literal
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "newline"
	case tokString:
		return fmt.Sprintf("string %q", t.str)
	}
	return fmt.Sprintf("%q", t.text)
}

var stringPrefixes = map[string]bool{"r": true, "b": true, "f": true, "rb": true, "br": true, "fr": true, "rf": true}

// two-character operators, matched before single ones
var multiOps = []string{"**", "//", "==", "!=", "<=", ">=", "->"}

const singleOps = "+-*/%<>=()[]{},.:&|~^;"

// lex splits src into tokens. Newlines inside brackets are ignored; top
// level newlines and ';' become statement separators.
func lex(src string) ([]token, error) {
	var toks []token
	depth := 0
	i := 0
	for i < len(src) {
		r, w := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == '\n':
			if depth == 0 {
				toks = append(toks, token{kind: tokNewline, text: "\n", pos: i})
			}
			i += w
		case r == '\\' && i+1 < len(src) && src[i+1] == '\n':
			i += 2
		case unicode.IsSpace(r):
			i += w
		case r == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case isIdentStart(r):
			start := i
			for i < len(src) {
				r, w := utf8.DecodeRuneInString(src[i:])
				if !isIdentStart(r) && !unicode.IsDigit(r) {
					break
				}
				i += w
			}
			word := src[start:i]
			// string prefixes: r'..', b'..', f'..' are not supported, u'..' is a plain string
			if i < len(src) && (src[i] == '\'' || src[i] == '"') && strings.EqualFold(word, "u") {
				continue
			}
			if i < len(src) && (src[i] == '\'' || src[i] == '"') && stringPrefixes[strings.ToLower(word)] {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("string prefix %q is not supported", word)}
			}
			toks = append(toks, token{kind: tokIdent, text: word, pos: start})
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(src) && isDigit(src[i+1])):
			tok, n, err := lexNumber(src[i:])
			if err != nil {
				return nil, &SyntaxError{Pos: i, Msg: err.Error()}
			}
			tok.pos = i
			toks = append(toks, tok)
			i += n
		case r == '\'' || r == '"':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, &SyntaxError{Pos: i, Msg: err.Error()}
			}
			toks = append(toks, token{kind: tokString, text: src[i : i+n], str: s, pos: i})
			i += n
		default:
			op := ""
			for _, m := range multiOps {
				if strings.HasPrefix(src[i:], m) {
					op = m
					break
				}
			}
			if op == "" {
				if !strings.ContainsRune(singleOps, r) {
					return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
				}
				op = string(r)
			}
			switch op {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			case ";":
				if depth == 0 {
					toks = append(toks, token{kind: tokNewline, text: ";", pos: i})
					i++
					continue
				}
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isDigit(b byte) bool      { return b >= '0' && b <= '9' }

func lexNumber(s string) (token, int, error) {
	i := 0
	isFloat := false
	for i < len(s) && (isDigit(s[i]) || s[i] == '_') {
		i++
	}
	if i < len(s) && s[i] == '.' {
		isFloat = true
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			isFloat = true
			i = j
			for i < len(s) && isDigit(s[i]) {
				i++
			}
		}
	}
	if i < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[i:]); isIdentStart(r) {
			return token{}, 0, fmt.Errorf("invalid number literal %q", s[:i+1])
		}
	}
	text := strings.ReplaceAll(s[:i], "_", "")
	if isFloat {
		return token{kind: tokFloat, text: text}, i, nil
	}
	return token{kind: tokInt, text: text}, i, nil
}

func lexString(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\n':
			return "", 0, fmt.Errorf("unterminated string literal")
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(s[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i])
			}
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}
