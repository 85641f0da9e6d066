package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// sfntVersionCFF is the 'OTTO' tag that opens OpenType fonts with CFF outlines.
const sfntVersionCFF = 0x4F54544F

// OpenTypeTable is an entry in the table directory of an sfnt file.
type OpenTypeTable struct {
	Tag    string
	Offset uint32
	Length uint32
}

// TableDirectory lists the tables of a TrueType or OpenType file.
type TableDirectory struct {
	Version uint32
	Tables  map[string]OpenTypeTable
}

func (d TableDirectory) Has(tag string) bool {
	_, ok := d.Tables[tag]
	return ok
}

// ParseTableDirectory reads the offset table and table records.
func ParseTableDirectory(data []byte) (TableDirectory, error) {
	r := bytes.NewReader(data)
	var header struct {
		Version   uint32
		NumTables uint16
		_         [3]uint16 // searchRange, entrySelector, rangeShift
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return TableDirectory{}, fmt.Errorf("offset table: %w", err)
	}
	if header.Version == 0x74746366 { // 'ttcf'
		return TableDirectory{}, errors.New("font collections are not supported")
	}
	dir := TableDirectory{Version: header.Version, Tables: make(map[string]OpenTypeTable, header.NumTables)}
	for i := 0; i < int(header.NumTables); i++ {
		var rec struct {
			Tag      [4]byte
			CheckSum uint32
			Offset   uint32
			Length   uint32
		}
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return TableDirectory{}, fmt.Errorf("table record %d: %w", i, err)
		}
		if uint64(rec.Offset)+uint64(rec.Length) > uint64(len(data)) {
			return TableDirectory{}, fmt.Errorf("table %q out of bounds", string(rec.Tag[:]))
		}
		tag := string(rec.Tag[:])
		dir.Tables[tag] = OpenTypeTable{Tag: tag, Offset: rec.Offset, Length: rec.Length}
	}
	return dir, nil
}
