package dataset

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bioforge/organclock/pkg/errors"
)

// SAS XPORT (transport) V5 layout: a sequence of 80-byte records. A library
// header, a member header with a 140-byte NAMESTR entry per variable, then
// observation records packed back to back and blank-padded to an 80-byte
// boundary. Numeric fields are IBM System/360 doubles. See SAS TS-140.

const (
	xptRecordLen  = 80
	xptNamestrLen = 140
)

type xptVariable struct {
	name    string
	numeric bool
	length  int
	pos     int
}

// ReadXPT parses a SAS XPORT V5 stream into a Frame. Column names are
// canonicalized to upper case. Numeric missing codes (".", "._", ".A"-".Z")
// become NaN; character variables become categorical columns.
func ReadXPT(r io.Reader) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading XPT stream")
	}
	if len(data) < 3*xptRecordLen || !strings.HasPrefix(string(data[:20]), "HEADER RECORD*******") {
		return nil, errors.NewValueError("ReadXPT", "not a SAS XPORT file (missing library header)")
	}

	vars, obsStart, err := parseXPTHeaders(data)
	if err != nil {
		return nil, err
	}

	obsLen := 0
	for _, v := range vars {
		obsLen += v.length
	}
	if obsLen == 0 {
		return nil, errors.NewValueError("ReadXPT", "zero-length observation record")
	}

	numCols := make([][]float64, len(vars))
	strCols := make([][]string, len(vars))
	for i := range vars {
		if vars[i].numeric {
			numCols[i] = []float64{}
		} else {
			strCols[i] = []string{}
		}
	}

	for off := obsStart; off+obsLen <= len(data); off += obsLen {
		row := data[off : off+obsLen]
		if isBlank(row) {
			// Trailing blank padding after the last observation.
			break
		}
		for i, v := range vars {
			field := row[v.pos : v.pos+v.length]
			if v.numeric {
				numCols[i] = append(numCols[i], ibmToFloat64(field))
			} else {
				strCols[i] = append(strCols[i], strings.TrimSpace(string(field)))
			}
		}
	}

	f := New()
	for i, v := range vars {
		name := CanonicalName(v.name)
		if v.numeric {
			if err := f.AddColumn(name, numCols[i]); err != nil {
				return nil, err
			}
			continue
		}
		codes, categories := encodeLevels(strCols[i])
		if err := f.AddCategoricalColumn(name, codes, categories); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// parseXPTHeaders walks the 80-byte header records and returns the variable
// descriptors plus the byte offset of the first observation.
func parseXPTHeaders(data []byte) ([]xptVariable, int, error) {
	off := 0
	nvars := -1
	for off+xptRecordLen <= len(data) {
		rec := string(data[off : off+xptRecordLen])
		off += xptRecordLen
		if !strings.HasPrefix(rec, "HEADER RECORD*******") {
			continue
		}
		kind := strings.TrimSpace(rec[20:28])
		switch kind {
		case "NAMESTR":
			n, err := strconv.Atoi(strings.TrimLeft(rec[54:58], "0 "))
			if err != nil || n <= 0 {
				return nil, 0, errors.NewValueError("ReadXPT", "unreadable NAMESTR variable count")
			}
			nvars = n

			size := n * xptNamestrLen
			// NAMESTR block is blank-padded to an 80-byte boundary.
			padded := ((size + xptRecordLen - 1) / xptRecordLen) * xptRecordLen
			if off+padded > len(data) {
				return nil, 0, errors.NewValueError("ReadXPT", "truncated NAMESTR block")
			}
			vars := make([]xptVariable, n)
			for i := 0; i < n; i++ {
				entry := data[off+i*xptNamestrLen : off+(i+1)*xptNamestrLen]
				vars[i] = xptVariable{
					// Names may be NUL-padded rather than blank-padded.
					name:    strings.Trim(string(entry[8:16]), "\x00 "),
					numeric: binary.BigEndian.Uint16(entry[0:2]) == 1,
					length:  int(binary.BigEndian.Uint16(entry[4:6])),
					pos:     int(binary.BigEndian.Uint32(entry[84:88])),
				}
			}
			off += padded

			// The OBS header record follows the NAMESTR block.
			if off+xptRecordLen > len(data) {
				return nil, 0, errors.NewValueError("ReadXPT", "missing OBS header record")
			}
			obsRec := string(data[off : off+xptRecordLen])
			if !strings.Contains(obsRec, "OBS     HEADER RECORD") {
				return nil, 0, errors.NewValueError("ReadXPT", "expected OBS header record after NAMESTR block")
			}
			return vars, off + xptRecordLen, nil
		}
	}
	if nvars < 0 {
		return nil, 0, errors.NewValueError("ReadXPT", "no NAMESTR header record found")
	}
	return nil, 0, errors.NewValueError("ReadXPT", "no observation records found")
}

// ibmToFloat64 converts an IBM System/360 floating point field (2-8 bytes)
// to IEEE 754. SAS missing codes map to NaN.
func ibmToFloat64(field []byte) float64 {
	if len(field) == 0 {
		return math.NaN()
	}
	// Missing values: '.', '._', '.A'..'.Z' with zero-filled remainder.
	first := field[0]
	if first == '.' || first == '_' || (first >= 'A' && first <= 'Z') {
		rest := true
		for _, b := range field[1:] {
			if b != 0 {
				rest = false
				break
			}
		}
		if rest {
			return math.NaN()
		}
	}

	var buf [8]byte
	copy(buf[:], field)
	bits := binary.BigEndian.Uint64(buf[:])
	if bits == 0 {
		return 0
	}

	sign := bits & (1 << 63)
	exponent := int((bits>>56)&0x7f) - 64
	fraction := bits & 0x00ffffffffffffff
	if fraction == 0 {
		return 0
	}

	// value = 0.fraction (base 16) * 16^exponent
	value := float64(fraction) / math.Pow(2, 56) * math.Pow(16, float64(exponent))
	if sign != 0 {
		value = -value
	}
	return value
}

func isBlank(row []byte) bool {
	for _, b := range row {
		if b != ' ' && b != 0 {
			return false
		}
	}
	return true
}

// encodeLevels converts raw strings to level codes with a first-occurrence
// category table. Empty strings become NaN.
func encodeLevels(raw []string) ([]float64, []string) {
	codes := make([]float64, len(raw))
	var categories []string
	lookup := map[string]int{}
	for i, s := range raw {
		if s == "" {
			codes[i] = math.NaN()
			continue
		}
		code, ok := lookup[s]
		if !ok {
			code = len(categories)
			lookup[s] = code
			categories = append(categories, s)
		}
		codes[i] = float64(code)
	}
	return codes, categories
}
