package luadep

import (
	"strings"
)

// RequireSite is one textual require call-site found in a Lua source file.
type RequireSite struct {
	// Module is the literal module reference, exactly as written.
	Module string
	// Line is the 1-based line the call starts on.
	Line int
	// File is the source file the call was found in.
	File string
}

// lexState enumerates the scanner states. Exactly one state is active at any
// point of the forward scan.
type lexState int

const (
	stateNormal lexState = iota
	stateSingleQuote
	stateDoubleQuote
	stateLongString
	stateLineComment
	stateBlockComment
)

// maxStatementLen bounds the raw statement text carried by
// DynamicRequireError.
const maxStatementLen = 120

// lexer performs a single forward scan over Lua source bytes, collecting
// require call-sites while skipping string and comment content. It is
// constructed per file and discarded after the scan.
type lexer struct {
	src   []byte
	file  string
	pos   int
	line  int
	state lexState
	level int // long-bracket nesting level for stateLongString/stateBlockComment
	sites []RequireSite
}

// ScanRequires tokenizes src and returns the ordered require call-sites.
// Require-shaped text inside strings or comments produces no site. A require
// whose argument is not a plain literal fails with DynamicRequireError.
func ScanRequires(src []byte, file string) ([]RequireSite, error) {
	lx := &lexer{src: src, file: file, line: 1}

	return lx.run()
}

func (l *lexer) run() ([]RequireSite, error) {
	for l.pos < len(l.src) {
		var err error

		switch l.state {
		case stateNormal:
			err = l.stepNormal()
		case stateSingleQuote:
			l.stepShortString('\'')
		case stateDoubleQuote:
			l.stepShortString('"')
		case stateLongString, stateBlockComment:
			l.stepLongBracket()
		case stateLineComment:
			l.stepLineComment()
		}

		if err != nil {
			return nil, err
		}
	}

	switch l.state {
	case stateSingleQuote, stateDoubleQuote:
		return nil, &DynamicRequireError{File: l.file, Line: l.line, Statement: "unterminated string literal"}
	case stateLongString:
		return nil, &DynamicRequireError{File: l.file, Line: l.line, Statement: "unterminated long bracket literal"}
	case stateNormal, stateLineComment, stateBlockComment:
	}

	return l.sites, nil
}

// stepNormal consumes one token in code context: a state switch, an
// identifier run, or a single uninteresting byte.
func (l *lexer) stepNormal() error {
	c := l.src[l.pos]

	switch {
	case c == '\n':
		l.line++
		l.pos++
	case c == '\'':
		l.state = stateSingleQuote
		l.pos++
	case c == '"':
		l.state = stateDoubleQuote
		l.pos++
	case c == '-' && l.peek(1) == '-':
		l.pos += 2

		if level, n, ok := longBracketOpen(l.src, l.pos); ok {
			l.level = level
			l.pos += n
			l.state = stateBlockComment
		} else {
			l.state = stateLineComment
		}
	case c == '[':
		if level, n, ok := longBracketOpen(l.src, l.pos); ok {
			l.level = level
			l.pos += n
			l.state = stateLongString
		} else {
			l.pos++
		}
	case isIdentStart(c):
		return l.scanIdent()
	default:
		l.pos++
	}

	return nil
}

// stepShortString consumes one byte inside a quoted string, leaving the
// string state when an unescaped closing quote is found. The quote closes
// only when the count of immediately preceding backslashes is even.
func (l *lexer) stepShortString(quote byte) {
	c := l.src[l.pos]
	if c == '\n' {
		l.line++
	}

	if c == quote && !l.escaped() {
		l.state = stateNormal
	}

	l.pos++
}

// stepLongBracket consumes one byte inside a long-bracket string or block
// comment. The closing bracket must carry exactly the opening level, so a
// level-0 [[..]] never closes on a mismatched ]=].
func (l *lexer) stepLongBracket() {
	c := l.src[l.pos]
	if c == '\n' {
		l.line++
		l.pos++

		return
	}

	if c == ']' {
		if n, ok := longBracketCloseAt(l.src, l.pos, l.level); ok {
			l.pos += n
			l.state = stateNormal

			return
		}
	}

	l.pos++
}

func (l *lexer) stepLineComment() {
	if l.src[l.pos] == '\n' {
		l.line++
		l.state = stateNormal
	}

	l.pos++
}

// escaped reports whether the byte at l.pos is preceded by an odd number of
// backslashes.
func (l *lexer) escaped() bool {
	count := 0
	for i := l.pos - 1; i >= 0 && l.src[i] == '\\'; i-- {
		count++
	}

	return count%2 == 1
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}

	return l.src[l.pos+offset]
}

// scanIdent consumes a full identifier run and dispatches keyword handling.
// A run whose preceding byte is an identifier character is never a keyword:
// it is the tail of a longer identifier (e.g. the "require" in "0require").
func (l *lexer) scanIdent() error {
	start := l.pos
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}

	if start > 0 && isIdentChar(l.src[start-1]) {
		return nil
	}

	switch string(l.src[start:l.pos]) {
	case "require":
		return l.scanRequireCall(start)
	case "pcall":
		return l.scanGuardedCall(start)
	}

	return nil
}

// scanRequireCall parses the argument of a direct require call. The cursor
// sits just past the keyword. A require that is not immediately followed by
// an argument (a reference to the function as a value) produces no site.
func (l *lexer) scanRequireCall(start int) error {
	callLine := l.line
	l.skipSpace()

	if l.pos >= len(l.src) {
		return nil
	}

	switch c := l.src[l.pos]; {
	case c == '"' || c == '\'':
		module, err := l.readShortLiteral(c, start, callLine)
		if err != nil {
			return err
		}

		if err := l.rejectConcat(start, callLine); err != nil {
			return err
		}

		l.emit(module, callLine)
	case c == '[':
		if _, _, ok := longBracketOpen(l.src, l.pos); !ok {
			return nil // indexing expression, not a call
		}

		module, err := l.readLongLiteral(start, callLine)
		if err != nil {
			return err
		}

		if err := l.rejectConcat(start, callLine); err != nil {
			return err
		}

		l.emit(module, callLine)
	case c == '(':
		l.pos++

		module, err := l.readParenArgument(start, callLine)
		if err != nil {
			return err
		}

		l.emit(module, callLine)
	}

	return nil
}

// scanGuardedCall recognizes the pcall(require, "mod") guard form and treats
// it identically to a direct require. Anything else shaped like a pcall is
// rescanned as ordinary code.
func (l *lexer) scanGuardedCall(start int) error {
	savedPos, savedLine := l.pos, l.line
	callLine := l.line

	restore := func() {
		l.pos, l.line = savedPos, savedLine
	}

	l.skipSpace()

	if l.pos >= len(l.src) || l.src[l.pos] != '(' {
		restore()

		return nil
	}

	l.pos++
	l.skipSpace()

	if !l.matchWord("require") {
		restore()

		return nil
	}

	l.skipSpace()

	if l.pos >= len(l.src) || l.src[l.pos] != ',' {
		restore()

		return nil
	}

	l.pos++

	module, err := l.readParenArgument(start, callLine)
	if err != nil {
		return err
	}

	l.emit(module, callLine)

	return nil
}

// readParenArgument parses a parenthesized module argument: skips leading
// whitespace, reads the literal, rejects trailing concatenation, and consumes
// the closing parenthesis. The cursor sits just past the opening delimiter
// (the "(" or the "," of the guard form).
func (l *lexer) readParenArgument(start, callLine int) (string, error) {
	l.skipSpace()

	if l.pos >= len(l.src) {
		return "", l.dynamicErr(start, callLine)
	}

	var (
		module string
		err    error
	)

	switch c := l.src[l.pos]; {
	case c == '"' || c == '\'':
		module, err = l.readShortLiteral(c, start, callLine)
	case c == '[':
		if _, _, ok := longBracketOpen(l.src, l.pos); !ok {
			return "", l.dynamicErr(start, callLine)
		}

		module, err = l.readLongLiteral(start, callLine)
	default:
		// Variable, concatenation, nested call: not resolvable statically.
		return "", l.dynamicErr(start, callLine)
	}

	if err != nil {
		return "", err
	}

	if err := l.rejectConcat(start, callLine); err != nil {
		return "", err
	}

	l.skipSpace()

	if l.pos < len(l.src) && l.src[l.pos] == ')' {
		l.pos++
	}

	return module, nil
}

// rejectConcat raises when ".." follows an extracted literal: the literal is
// only a fragment of the real module name, and narrowing to it silently would
// record a dependency that does not exist.
func (l *lexer) rejectConcat(start, callLine int) error {
	l.skipSpace()

	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && l.src[l.pos+1] == '.' {
		return l.dynamicErr(start, callLine)
	}

	return nil
}

// readShortLiteral consumes a quoted literal starting at the opening quote
// and returns its raw content. A raw newline or end of input before the
// closing quote makes the literal unterminated.
func (l *lexer) readShortLiteral(quote byte, start, callLine int) (string, error) {
	l.pos++ // opening quote
	contentStart := l.pos

	for l.pos < len(l.src) {
		c := l.src[l.pos]

		switch {
		case c == '\\':
			if l.peek(1) == '\n' {
				l.line++
			}

			l.pos += 2
		case c == '\n':
			return "", l.dynamicErr(start, callLine)
		case c == quote:
			content := string(l.src[contentStart:l.pos])
			l.pos++

			return content, nil
		default:
			l.pos++
		}
	}

	return "", l.dynamicErr(start, callLine)
}

// readLongLiteral consumes a long-bracket literal starting at the opening
// bracket and returns its raw content.
func (l *lexer) readLongLiteral(start, callLine int) (string, error) {
	level, n, _ := longBracketOpen(l.src, l.pos)
	l.pos += n
	contentStart := l.pos

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\n' {
			l.line++
			l.pos++

			continue
		}

		if c == ']' {
			if closeLen, ok := longBracketCloseAt(l.src, l.pos, level); ok {
				content := string(l.src[contentStart:l.pos])
				l.pos += closeLen

				return content, nil
			}
		}

		l.pos++
	}

	return "", l.dynamicErr(start, callLine)
}

// matchWord consumes the given keyword if it sits at the cursor with an
// identifier boundary after it.
func (l *lexer) matchWord(word string) bool {
	end := l.pos + len(word)
	if end > len(l.src) || string(l.src[l.pos:end]) != word {
		return false
	}

	if end < len(l.src) && isIdentChar(l.src[end]) {
		return false
	}

	l.pos = end

	return true
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
		case '\n':
			l.line++
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) emit(module string, line int) {
	l.sites = append(l.sites, RequireSite{Module: module, Line: line, File: l.file})
}

// dynamicErr builds a DynamicRequireError carrying the raw statement text,
// clipped at the end of the starting line.
func (l *lexer) dynamicErr(start, callLine int) *DynamicRequireError {
	end := start
	for end < len(l.src) && l.src[end] != '\n' && end-start < maxStatementLen {
		end++
	}

	return &DynamicRequireError{
		File:      l.file,
		Line:      callLine,
		Statement: strings.TrimSpace(string(l.src[start:end])),
	}
}

// longBracketOpen reports whether an opening long bracket sits at pos.
// The level is the number of "=" separators between the two "[" delimiters;
// n is the total delimiter length.
func longBracketOpen(src []byte, pos int) (level, n int, ok bool) {
	if pos >= len(src) || src[pos] != '[' {
		return 0, 0, false
	}

	i := pos + 1
	for i < len(src) && src[i] == '=' {
		i++
	}

	if i < len(src) && src[i] == '[' {
		return i - pos - 1, i - pos + 1, true
	}

	return 0, 0, false
}

// longBracketCloseAt reports whether a closing long bracket of exactly the
// given level sits at pos, returning the delimiter length.
func longBracketCloseAt(src []byte, pos, level int) (n int, ok bool) {
	if pos >= len(src) || src[pos] != ']' {
		return 0, false
	}

	i := pos + 1
	for i < len(src) && src[i] == '=' {
		i++
	}

	if i-pos-1 == level && i < len(src) && src[i] == ']' {
		return level + 2, true
	}

	return 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
