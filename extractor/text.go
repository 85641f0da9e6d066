package extractor

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// toUnicodeMap is the bfchar/bfrange part of a ToUnicode CMap.
type toUnicodeMap struct {
	entries map[string]string
	lengths []int // code lengths, longest first
}

func parseToUnicodeCMap(data []byte) *toUnicodeMap {
	lineScanner := bufio.NewScanner(bytes.NewReader(data))
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	result := &toUnicodeMap{entries: make(map[string]string)}
	lengthSet := make(map[int]struct{})
	state := ""
	for lineScanner.Scan() {
		line := strings.TrimSpace(lineScanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		switch {
		case strings.HasSuffix(line, "begincodespacerange"):
			state = "codespace"
			continue
		case strings.HasSuffix(line, "beginbfchar"):
			state = "bfchar"
			continue
		case strings.HasSuffix(line, "beginbfrange"):
			state = "bfrange"
			continue
		case strings.HasSuffix(line, "endcodespacerange"),
			strings.HasSuffix(line, "endbfchar"),
			strings.HasSuffix(line, "endbfrange"):
			state = ""
			continue
		}
		switch state {
		case "codespace":
			for i, h := range hexTokens(line) {
				if i%2 == 0 {
					if b := hexBytes(h); len(b) > 0 {
						lengthSet[len(b)] = struct{}{}
					}
				}
			}
		case "bfchar":
			hexes := hexTokens(line)
			for i := 0; i+1 < len(hexes); i += 2 {
				src := hexBytes(hexes[i])
				if len(src) == 0 {
					continue
				}
				result.entries[string(src)] = decodeUTF16BE(hexBytes(hexes[i+1]))
				lengthSet[len(src)] = struct{}{}
			}
		case "bfrange":
			line = accumulateUntil(line, lineScanner)
			hexes := hexTokens(line)
			if len(hexes) < 3 {
				continue
			}
			srcStart := hexBytes(hexes[0])
			length := len(srcStart)
			if length == 0 {
				continue
			}
			lengthSet[length] = struct{}{}
			startVal := bytesToInt(srcStart)
			endVal := bytesToInt(hexBytes(hexes[1]))
			if endVal-startVal > 0xFFFF {
				continue
			}
			if strings.Contains(line, "[") {
				for i := 0; i <= endVal-startVal && 2+i < len(hexes); i++ {
					result.entries[string(intToBytes(startVal+i, length))] = decodeUTF16BE(hexBytes(hexes[2+i]))
				}
				continue
			}
			dst := hexBytes(hexes[2])
			for i := 0; i <= endVal-startVal; i++ {
				result.entries[string(intToBytes(startVal+i, length))] = decodeUTF16BE(incrementLast(dst, i))
			}
		}
	}
	if len(lengthSet) == 0 {
		for k := range result.entries {
			lengthSet[len(k)] = struct{}{}
		}
	}
	for l := range lengthSet {
		result.lengths = append(result.lengths, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(result.lengths)))
	return result
}

func (m *toUnicodeMap) lookup(code []byte) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m.entries[string(code)]
	return s, ok
}

// split cuts data into codes using the longest code length that has a mapping.
func (m *toUnicodeMap) split(data []byte) [][]byte {
	var codes [][]byte
	for len(data) > 0 {
		n := 1
		for _, l := range m.lengths {
			if len(data) < l {
				continue
			}
			if _, ok := m.entries[string(data[:l])]; ok {
				n = l
				break
			}
		}
		codes = append(codes, data[:n])
		data = data[n:]
	}
	return codes
}

// accumulateUntil joins continuation lines of a bfrange array.
func accumulateUntil(line string, lineScanner *bufio.Scanner) string {
	if !strings.Contains(line, "[") || strings.Contains(line, "]") {
		return line
	}
	for lineScanner.Scan() {
		next := strings.TrimSpace(lineScanner.Text())
		line += " " + next
		if strings.Contains(next, "]") {
			break
		}
	}
	return line
}

func hexTokens(line string) []string {
	var tokens []string
	for {
		start := strings.IndexByte(line, '<')
		if start == -1 {
			break
		}
		end := strings.IndexByte(line[start+1:], '>')
		if end == -1 {
			break
		}
		tokens = append(tokens, strings.ReplaceAll(line[start+1:start+1+end], " ", ""))
		line = line[start+1+end+1:]
	}
	return tokens
}

func hexBytes(s string) []byte {
	if len(s)%2 == 1 {
		s += "0"
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

func bytesToInt(b []byte) int {
	val := 0
	for _, by := range b {
		val = (val << 8) | int(by)
	}
	return val
}

func intToBytes(value int, length int) []byte {
	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(value & 0xFF)
		value >>= 8
	}
	return buf
}

// incrementLast adds n to the final UTF-16 unit of dst, as bfrange
// destinations only vary in their last code unit.
func incrementLast(dst []byte, n int) []byte {
	if len(dst) < 2 {
		return intToBytes(bytesToInt(dst)+n, len(dst))
	}
	out := append([]byte(nil), dst...)
	last := bytesToInt(out[len(out)-2:]) + n
	copy(out[len(out)-2:], intToBytes(last, 2))
	return out
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return ""
	}
	out, err := utf16be.NewDecoder().Bytes(data)
	if err != nil {
		return ""
	}
	return string(out)
}
