// Package cleaner turns raw delimited text into clean UTF-8, comma
// separated CSV. It detects the character encoding (UTF-8 with or without
// BOM, UTF-16 with BOM, Shift_JIS, EUC-JP), sniffs comma or tab
// delimiters and skips title lines above the table.
package cleaner

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned for an encoding name that cannot be
// resolved.
var ErrUnknownEncoding = errors.New("unknown encoding")

const (
	sampleSize = 1 << 20

	// skipSampleRows is the number of rows whose widths decide the table
	// width when skipping leading lines.
	skipSampleRows = 22
)

// Options overrides detection. Zero values detect.
type Options struct {
	// Encoding names the input charset, e.g. "utf-8", "shift_jis",
	// "cp932", "euc-jp", "utf-16le".
	Encoding string

	// Delimiter is the input field separator.
	Delimiter rune

	// SkipLines, when set, is the number of leading rows to drop.
	SkipLines *int
}

// Result reports what was detected and written.
type Result struct {
	Encoding  string
	Delimiter rune
	SkipLines int
	Rows      int
}

// Clean reads r and writes UTF-8 comma separated CSV to w.
func Clean(r io.Reader, w io.Writer, opt Options) (Result, error) {
	var res Result

	raw := bufio.NewReaderSize(r, sampleSize)
	head, err := raw.Peek(sampleSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return res, fmt.Errorf("cleaner: read: %w", err)
	}
	atEOF := err == io.EOF

	var dec transform.Transformer
	if opt.Encoding != "" {
		enc, name, err := lookupEncoding(opt.Encoding)
		if err != nil {
			return res, err
		}
		res.Encoding = name
		if enc != nil {
			dec = unicode.BOMOverride(enc.NewDecoder())
		} else {
			dec = unicode.BOMOverride(transform.Nop)
		}
	} else {
		var enc encoding.Encoding
		enc, res.Encoding = detectEncoding(head, atEOF)
		if enc != nil {
			dec = enc.NewDecoder()
		}
		if res.Encoding == "utf-8-sig" || strings.HasPrefix(res.Encoding, "utf-16") {
			dec = unicode.BOMOverride(transform.Nop)
		}
	}

	var text io.Reader = raw
	if dec != nil {
		text = transform.NewReader(raw, dec)
	}
	br := bufio.NewReaderSize(text, sampleSize)
	sample, err := br.Peek(sampleSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return res, fmt.Errorf("cleaner: decode: %w", err)
	}
	lines := sampleLines(sample, err == io.EOF)

	res.Delimiter = opt.Delimiter
	if res.Delimiter == 0 {
		res.Delimiter = DetectDelimiter(lines)
	}
	if opt.SkipLines != nil {
		res.SkipLines = *opt.SkipLines
	} else {
		res.SkipLines = DetectSkipLines(lines, res.Delimiter)
	}

	cr := csv.NewReader(br)
	cr.Comma = res.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cw := csv.NewWriter(w)

	for i := 0; ; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("cleaner: parse: %w", err)
		}
		if i < res.SkipLines {
			continue
		}
		if err := cw.Write(rec); err != nil {
			return res, fmt.Errorf("cleaner: write: %w", err)
		}
		res.Rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return res, fmt.Errorf("cleaner: write: %w", err)
	}
	return res, nil
}

// aliases covers names htmlindex does not know.
var aliases = map[string]string{
	"sjis":      "shift_jis",
	"cp932":     "shift_jis",
	"ms932":     "shift_jis",
	"utf-8-sig": "utf-8",
	"utf8":      "utf-8",
	"eucjp":     "euc-jp",
}

// lookupEncoding resolves a charset name. A nil encoding means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		n = a
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return nil, "", fmt.Errorf("cleaner: %w: %q", ErrUnknownEncoding, name)
	}
	canonical, _ := htmlindex.Name(enc)
	if canonical == "utf-8" {
		return nil, canonical, nil
	}
	return enc, canonical, nil
}

// detectEncoding guesses the charset of head. A nil encoding means the
// bytes are UTF-8 already.
func detectEncoding(head []byte, atEOF bool) (encoding.Encoding, string) {
	switch {
	case bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}):
		return nil, "utf-8-sig"
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), "utf-16le"
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), "utf-16be"
	}
	if !atEOF {
		if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
			head = head[:i+1]
		}
	}
	if utf8.Valid(head) {
		return nil, "utf-8"
	}

	best, bestName, bestScore := encoding.Encoding(nil), "utf-8", -1
	for _, c := range []struct {
		enc  encoding.Encoding
		name string
	}{
		{japanese.ShiftJIS, "shift_jis"},
		{japanese.EUCJP, "euc-jp"},
	} {
		out, err := c.enc.NewDecoder().Bytes(head)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		score := oddRunes(out)
		if bestScore < 0 || score < bestScore {
			best, bestName, bestScore = c.enc, c.name, score
		}
	}
	return best, bestName
}

// oddRunes counts runes that are rare in real Japanese text but common
// when a charset is misread: halfwidth katakana and private use.
func oddRunes(b []byte) int {
	n := 0
	for _, r := range string(b) {
		if (r >= 0xFF61 && r <= 0xFF9F) || (r >= 0xE000 && r <= 0xF8FF) {
			n++
		}
	}
	return n
}

func sampleLines(sample []byte, atEOF bool) []string {
	s := string(sample)
	if !atEOF {
		if i := strings.LastIndexByte(s, '\n'); i >= 0 {
			s = s[:i+1]
		}
	}
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}

// DetectDelimiter returns ',' or '\t'. The first five lines, lines shorter
// than ten characters and lines with fewer than two separators are
// ignored; the first line with more of one separator than the other
// decides.
func DetectDelimiter(lines []string) rune {
	for i, line := range lines {
		if utf8.RuneCountInString(line) < 10 || i < 5 {
			continue
		}
		commas := strings.Count(line, ",")
		tabs := strings.Count(line, "\t")
		if commas+tabs < 2 {
			continue
		}
		switch {
		case commas > tabs:
			return ','
		case tabs > commas:
			return '\t'
		}
	}
	return ','
}

// DetectSkipLines returns the number of leading rows whose field count
// differs from the most frequent count among the first rows.
func DetectSkipLines(lines []string, delim rune) int {
	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "")))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var widths []int
	for len(widths) < skipSampleRows {
		rec, err := cr.Read()
		if err != nil {
			break
		}
		widths = append(widths, len(rec))
	}

	freq := map[int]int{}
	mostWidth, mostFreq := 0, 0
	for _, w := range widths {
		freq[w]++
	}
	for _, w := range widths {
		if freq[w] > mostFreq {
			mostWidth, mostFreq = w, freq[w]
		}
	}

	skip := 0
	for _, w := range widths {
		if w == mostWidth {
			break
		}
		skip++
	}
	return skip
}
