package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/newa-nlp/newasearch/pkg/errors"
)

// Format selects the on-disk index encoding.
type Format int

const (
	// FormatJSON is the human-inspectable structured encoding: a UTF-8 JSON
	// object with index, document_count, and total_terms fields. Non-ASCII
	// characters are written literally.
	FormatJSON Format = iota
	// FormatBinary is an opaque snapshot with a dictionary and postings
	// region, checksummed with CRC-32. It round-trips the in-memory
	// structure exactly, including total_terms.
	FormatBinary
)

// ParseFormat converts a format name ("json" or "binary") into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "binary":
		return FormatBinary, nil
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidArgument, "format must be 'json' or 'binary', got %q", s)
	}
}

// String returns the format's configuration name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// portableIndex is the JSON document written by FormatJSON.
type portableIndex struct {
	Index         map[string][]string `json:"index"`
	DocumentCount int                 `json:"document_count"`
	TotalTerms    int                 `json:"total_terms"`
}

// Save writes the index to path in the given format. The write is atomic: a
// temporary file is renamed into place on success.
func Save(idx *InvertedIndex, path string, format Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating index directory: %w", err)
		}
	}
	var data []byte
	var err error
	switch format {
	case FormatJSON:
		data, err = encodeJSON(idx)
	case FormatBinary:
		data, err = encodeBinary(idx)
	default:
		return apperrors.Newf(apperrors.ErrInvalidArgument, "unknown index format %d", format)
	}
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// Load reads an index from path in the given format.
func Load(path string, format Format) (*InvertedIndex, error) {
	switch format {
	case FormatJSON, FormatBinary:
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown index format %d", format)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "index file not found: %s", path)
		}
		return nil, fmt.Errorf("reading index file %s: %w", path, err)
	}
	if format == FormatJSON {
		return decodeJSON(data)
	}
	return decodeBinary(data)
}

func encodeJSON(idx *InvertedIndex) ([]byte, error) {
	doc := portableIndex{
		Index:         idx.Portable(),
		DocumentCount: idx.documentCount,
		TotalTerms:    idx.totalTerms,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding index: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeJSON(data []byte) (*InvertedIndex, error) {
	var doc portableIndex
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "parsing index JSON: %v", err)
	}
	idx := FromPortable(doc.Index, doc.DocumentCount)
	// Restore the exact persisted count rather than the lossy recomputation.
	idx.totalTerms = doc.TotalTerms
	return idx, nil
}

// Binary snapshot layout:
//
//	header (48 bytes): magic, version, term count, document count,
//	                   total terms, dictionary offset, dictionary size
//	postings region:   per-term JSON-encoded doc-id lists
//	dictionary:        JSON array of dictEntry
//	footer (8 bytes):  CRC-32 of the dictionary, reserved word
const (
	magicBytes    uint32 = 0x4E574958 // "NWIX"
	formatVersion uint32 = 1
	headerSize           = 48
	footerSize           = 8
)

// dictEntry maps a term to its postings offset and length within the
// postings region.
type dictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

func encodeBinary(idx *InvertedIndex) ([]byte, error) {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var postings bytes.Buffer
	dict := make([]dictEntry, 0, len(terms))
	portable := idx.Portable()
	for _, term := range terms {
		docs := portable[term]
		offset := int64(postings.Len())
		data, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("marshaling postings for term %q: %w", term, err)
		}
		postings.Write(data)
		dict = append(dict, dictEntry{
			Term:       term,
			PostOffset: offset,
			PostLen:    len(data),
			DocFreq:    len(docs),
		})
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], magicBytes)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(terms)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(idx.documentCount))
	binary.LittleEndian.PutUint64(header[16:24], uint64(idx.totalTerms))
	binary.LittleEndian.PutUint64(header[24:32], uint64(headerSize+postings.Len()))
	binary.LittleEndian.PutUint64(header[32:40], uint64(len(dictData)))

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))

	out := make([]byte, 0, headerSize+postings.Len()+len(dictData)+footerSize)
	out = append(out, header...)
	out = append(out, postings.Bytes()...)
	out = append(out, dictData...)
	out = append(out, footer...)
	return out, nil
}

func decodeBinary(data []byte) (*InvertedIndex, error) {
	if len(data) < headerSize+footerSize {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "index snapshot truncated")
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != magicBytes {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "invalid index snapshot: bad magic bytes %x", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != formatVersion {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "unsupported snapshot version %d", version)
	}
	docCount := int(binary.LittleEndian.Uint32(data[12:16]))
	totalTerms := int(binary.LittleEndian.Uint64(data[16:24]))
	// Bounds-check the dictionary region in uint64 space so oversized or
	// crafted offsets cannot wrap around a signed addition.
	dictOffsetU := binary.LittleEndian.Uint64(data[24:32])
	dictSizeU := binary.LittleEndian.Uint64(data[32:40])
	payloadEnd := uint64(len(data) - footerSize)
	if dictOffsetU < headerSize || dictOffsetU > payloadEnd || dictSizeU > payloadEnd-dictOffsetU {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "index snapshot dictionary region out of bounds")
	}
	dictOffset := int64(dictOffsetU)
	dictSize := int64(dictSizeU)
	dictData := data[dictOffset : dictOffset+dictSize]
	footer := data[dictOffset+dictSize:]
	if crc := binary.LittleEndian.Uint32(footer[0:4]); crc != crc32.ChecksumIEEE(dictData) {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "index snapshot dictionary checksum mismatch")
	}
	var dict []dictEntry
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "parsing snapshot dictionary: %v", err)
	}

	postBase := int64(headerSize)
	portable := make(map[string][]string, len(dict))
	for _, entry := range dict {
		start := postBase + entry.PostOffset
		end := start + int64(entry.PostLen)
		if entry.PostLen < 0 || start < int64(headerSize) || end < start || end > dictOffset {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "postings for term %q out of bounds", entry.Term)
		}
		var docs []string
		if err := json.Unmarshal(data[start:end], &docs); err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "parsing postings for term %q: %v", entry.Term, err)
		}
		portable[entry.Term] = docs
	}
	idx := FromPortable(portable, docCount)
	idx.totalTerms = totalTerms
	return idx, nil
}
