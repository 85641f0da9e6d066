package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/wudi/pdforganizer/recovery"
)

type TokenType int

const (
	TokenDict        TokenType = iota // '<<'
	TokenArray                        // '['
	TokenName                         // '/Name'
	TokenString                       // literal or hex string
	TokenNumber                       // numeric value
	TokenBoolean                      // true/false
	TokenNull                         // null
	TokenRef                          // indirect ref '5 0 R'
	TokenStream                       // stream payload
	TokenInlineImage                  // inline image data following ID ... EI (content stream only)
	TokenKeyword                      // other keywords (obj, endobj, >>, ], operators)
)

// Ref is the value carried by TokenRef.
type Ref struct{ Num, Gen int }

type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int64
	// Hex marks strings written as <...>.
	Hex bool
}

type Scanner interface {
	Next() (Token, error)
	Position() int64
	Seek(offset int64) error
	SetRecoveryLocation(loc recovery.Location)
}

type Config struct {
	MaxStringLength int64
	MaxStreamLength int64
	WindowSize      int64
	Recovery        recovery.Strategy
}

// pdfScanner incrementally buffers PDF data from a ReaderAt in fixed-size windows.
type pdfScanner struct {
	reader    io.ReaderAt
	data      []byte
	pos       int64
	cfg       Config
	chunkSize int64
	eof       bool
	recLoc    recovery.Location
}

func New(r io.ReaderAt, cfg Config) Scanner {
	chunk := cfg.WindowSize
	if chunk <= 0 {
		chunk = 64 * 1024
	}
	return &pdfScanner{reader: r, cfg: cfg, chunkSize: chunk}
}

// NewBytes scans an in-memory buffer.
func NewBytes(data []byte, cfg Config) Scanner {
	return New(bytes.NewReader(data), cfg)
}

func (s *pdfScanner) Position() int64 { return s.pos }
func (s *pdfScanner) Seek(offset int64) error {
	if offset < 0 {
		return errors.New("seek out of range")
	}
	if err := s.ensure(offset); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}
func (s *pdfScanner) SetRecoveryLocation(loc recovery.Location) { s.recLoc = loc }

func (s *pdfScanner) Next() (Token, error) {
	if err := s.skipWSAndComments(); err != nil {
		return Token{}, err
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Value: "<<", Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return Token{Type: TokenKeyword, Value: ">>", Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Value: ">", Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArray, Value: "[", Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenKeyword, Value: "]", Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isDigitStart(c) {
		return s.scanNumberOrRef()
	}
	if isRegular(c) {
		return s.scanKeyword()
	}
	s.pos++
	return Token{Type: TokenKeyword, Value: string(c), Pos: start}, nil
}

func (s *pdfScanner) skipWSAndComments() error {
	for {
		if err := s.ensure(s.pos); err != nil {
			return err
		}
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for {
				s.pos++
				if err := s.ensure(s.pos); err != nil {
					return err
				}
				if isEOL(s.data[s.pos]) {
					break
				}
			}
			continue
		}
		return nil
	}
}

// ensure makes data[n] addressable, returning io.EOF past the end of input.
func (s *pdfScanner) ensure(n int64) error {
	for int64(len(s.data)) <= n {
		if s.eof {
			return io.EOF
		}
		if err := s.loadMore(); err != nil {
			return err
		}
	}
	return nil
}

func (s *pdfScanner) loadMore() error {
	buf := make([]byte, s.chunkSize)
	n, err := s.reader.ReadAt(buf, int64(len(s.data)))
	if n > 0 {
		s.data = append(s.data, buf[:n]...)
	}
	if err == io.EOF || (err == nil && n == 0) {
		s.eof = true
		return nil
	}
	return err
}

func (s *pdfScanner) peekAhead(n int64) byte {
	if err := s.ensure(s.pos + n); err != nil {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // '/'
	var out bytes.Buffer
	for s.ensure(s.pos) == nil {
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' && s.ensure(s.pos+2) == nil && isHex(s.data[s.pos+1]) && isHex(s.data[s.pos+2]) {
			out.WriteByte(fromHex(s.data[s.pos+1])<<4 | fromHex(s.data[s.pos+2]))
			s.pos += 3
			continue
		}
		out.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Value: out.String(), Pos: start}, nil
}

func (s *pdfScanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		if err := s.ensure(s.pos); err != nil {
			break
		}
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if err := s.ensure(s.pos); err != nil {
				break
			}
			esc := s.data[s.pos]
			s.pos++
			switch {
			case esc == '\r':
				if s.ensure(s.pos) == nil && s.data[s.pos] == '\n' {
					s.pos++
				}
			case esc == '\n':
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				for k := 0; k < 2 && s.ensure(s.pos) == nil; k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
			}
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(c)
			}
		default:
			buf.WriteByte(c)
		}
		if s.cfg.MaxStringLength > 0 && int64(buf.Len()) > s.cfg.MaxStringLength {
			return Token{}, s.fail(errors.New("literal string too long"), "literal")
		}
	}
	if depth != 0 {
		if err := s.recover(errors.New("unterminated literal string"), "literal"); err != nil {
			return Token{}, err
		}
	}
	return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // '<'
	var hexbuf []byte
	closed := false
	for s.ensure(s.pos) == nil {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			closed = true
			break
		}
		if isWhitespace(c) {
			continue
		}
		if !isHex(c) {
			if err := s.recover(errors.New("invalid hex digit"), "hex"); err != nil {
				return Token{}, err
			}
			continue
		}
		hexbuf = append(hexbuf, c)
	}
	if !closed {
		if err := s.recover(errors.New("unterminated hex string"), "hex"); err != nil {
			return Token{}, err
		}
	}
	if len(hexbuf)%2 == 1 {
		hexbuf = append(hexbuf, '0')
	}
	out := make([]byte, 0, len(hexbuf)/2)
	for i := 0; i < len(hexbuf); i += 2 {
		out = append(out, fromHex(hexbuf[i])<<4|fromHex(hexbuf[i+1]))
	}
	return Token{Type: TokenString, Value: out, Pos: start, Hex: true}, nil
}

var endstream = []byte("endstream")

// scanStream consumes bytes until the next 'endstream' keyword. The declared
// /Length is not trusted; objects are located by a brute-force scan anyway.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	if err := s.ensure(s.pos); err != nil {
		return Token{}, s.fail(errors.New("stream missing EOL before data"), "stream")
	}
	switch s.data[s.pos] {
	case '\r':
		s.pos++
		if s.ensure(s.pos) == nil && s.data[s.pos] == '\n' {
			s.pos++
		}
	case '\n':
		s.pos++
	default:
		if err := s.recover(errors.New("stream missing EOL before data"), "stream"); err != nil {
			return Token{}, err
		}
	}
	dataStart := s.pos
	for !s.eof {
		if err := s.loadMore(); err != nil {
			return Token{}, err
		}
	}
	idx := -1
	for off := dataStart; ; {
		i := bytes.Index(s.data[off:], endstream)
		if i < 0 {
			break
		}
		at := off + int64(i)
		after := at + int64(len(endstream))
		if after >= int64(len(s.data)) || isDelimiter(s.data[after]) {
			idx = int(at)
			break
		}
		off = after
	}
	if idx < 0 {
		if err := s.recover(errors.New("endstream not found"), "stream"); err != nil {
			return Token{}, err
		}
		payload := append([]byte(nil), s.data[dataStart:]...)
		s.pos = int64(len(s.data))
		return Token{Type: TokenStream, Value: payload, Pos: start}, nil
	}
	end := idx
	if end > int(dataStart) && s.data[end-1] == '\n' {
		end--
	}
	if end > int(dataStart) && s.data[end-1] == '\r' {
		end--
	}
	payload := append([]byte(nil), s.data[dataStart:end]...)
	if s.cfg.MaxStreamLength > 0 && int64(len(payload)) > s.cfg.MaxStreamLength {
		return Token{}, s.fail(errors.New("stream too long"), "stream")
	}
	s.pos = int64(idx + len(endstream))
	return Token{Type: TokenStream, Value: payload, Pos: start}, nil
}

// scanInlineImage consumes bytes after the ID keyword up to a whitespace-delimited EI.
func (s *pdfScanner) scanInlineImage(start int64) (Token, error) {
	if err := s.ensure(s.pos); err != nil || !isWhitespace(s.data[s.pos]) {
		return Token{}, s.fail(errors.New("inline image missing whitespace after ID"), "inline_image")
	}
	s.pos++
	dataStart := s.pos
	for {
		if err := s.ensure(s.pos + 1); err != nil {
			return Token{}, s.fail(errors.New("unterminated inline image"), "inline_image")
		}
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' && s.pos > dataStart && isWhitespace(s.data[s.pos-1]) {
			nextOK := s.ensure(s.pos+2) != nil || isDelimiter(s.data[s.pos+2])
			if nextOK {
				payload := append([]byte(nil), s.data[dataStart:s.pos-1]...)
				s.pos += 2
				return Token{Type: TokenInlineImage, Value: payload, Pos: start}, nil
			}
		}
		s.pos++
	}
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	var buf bytes.Buffer
	for s.ensure(s.pos) == nil {
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		buf.WriteByte(c)
		s.pos++
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Value: kw == "true", Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	case "ID":
		return s.scanInlineImage(start)
	default:
		return Token{Type: TokenKeyword, Value: kw, Pos: start}, nil
	}
}

// scanNumberOrRef reads a number and looks ahead for the 'G R' of an indirect
// reference. The R must be a standalone token so operators like RG stay intact.
func (s *pdfScanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	num1 := s.scanNumberString()
	if num1 == "" {
		s.pos++
		if err := s.recover(errors.New("invalid number"), "number"); err != nil {
			return Token{}, err
		}
		return s.Next()
	}
	afterFirst := s.pos
	if isUnsignedInt(num1) && s.skipWSAndComments() == nil {
		num2 := s.scanNumberString()
		if isUnsignedInt(num2) && s.skipWSAndComments() == nil && s.data[s.pos] == 'R' {
			if s.ensure(s.pos+1) != nil || isDelimiter(s.data[s.pos+1]) {
				s.pos++
				n1, _ := strconv.Atoi(num1)
				n2, _ := strconv.Atoi(num2)
				return Token{Type: TokenRef, Value: Ref{Num: n1, Gen: n2}, Pos: start}, nil
			}
		}
	}
	s.pos = afterFirst
	if i, err := strconv.ParseInt(num1, 10, 64); err == nil {
		return Token{Type: TokenNumber, Value: i, Pos: start}, nil
	}
	f, err := strconv.ParseFloat(num1, 64)
	if err != nil {
		// forms like "--5" or "1.2.3" appear in damaged files; salvage the prefix
		f = salvageFloat(num1)
		if rerr := s.recover(errors.New("malformed number "+num1), "number"); rerr != nil {
			return Token{}, rerr
		}
	}
	return Token{Type: TokenNumber, Value: f, Pos: start}, nil
}

func (s *pdfScanner) scanNumberString() string {
	start := s.pos
	seenDigit := false
	for s.ensure(s.pos) == nil {
		c := s.data[s.pos]
		if c == '+' || c == '-' || c == '.' || isDigit(c) {
			seenDigit = seenDigit || isDigit(c)
			s.pos++
			continue
		}
		break
	}
	if !seenDigit {
		s.pos = start
		return ""
	}
	return string(s.data[start:s.pos])
}

func salvageFloat(v string) float64 {
	for end := len(v); end > 0; end-- {
		if f, err := strconv.ParseFloat(v[:end], 64); err == nil {
			return f
		}
	}
	return 0
}

// recover consults the strategy; a nil return means the scanner keeps going.
func (s *pdfScanner) recover(err error, component string) error {
	if s.cfg.Recovery == nil {
		return nil
	}
	switch s.cfg.Recovery.OnError(err, s.location(component)) {
	case recovery.ActionSkip, recovery.ActionFix, recovery.ActionWarn:
		return nil
	default:
		return err
	}
}

// fail reports an unrecoverable problem to the strategy and returns it.
func (s *pdfScanner) fail(err error, component string) error {
	if s.cfg.Recovery != nil {
		s.cfg.Recovery.OnError(err, s.location(component))
	}
	return err
}

func (s *pdfScanner) location(component string) recovery.Location {
	loc := s.recLoc
	loc.ByteOffset = s.pos
	if loc.Component != "" {
		loc.Component += "->"
	}
	loc.Component += "scanner:" + component
	return loc
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isDigitStart(c byte) bool { return c == '+' || c == '-' || c == '.' || isDigit(c) }
func isRegular(c byte) bool    { return !isDelimiter(c) && c > ' ' && c < 0x7f && c != '\'' && c != '"' }
func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isUnsignedInt(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if !isDigit(v[i]) {
			return false
		}
	}
	return true
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}
func isEOL(c byte) bool { return c == '\r' || c == '\n' }
func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespace(c)
	}
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}
