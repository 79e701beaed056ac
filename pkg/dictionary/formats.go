package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat is the kind of table a file holds.
type FileFormat int

const (
	FormatUnknown  FileFormat = iota
	FormatAliases             // alias, qid, frequency
	FormatEntities            // qid, title, image, abstract
)

// FormatInfo contains metadata about a table format.
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	Columns     int
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatAliases: {
		Format:      FormatAliases,
		Description: "Entity alias table",
		Extensions:  []string{".tsv", ".txt"},
		Columns:     3,
	},
	FormatEntities: {
		Format:      FormatEntities,
		Description: "Entity info table",
		Extensions:  []string{".tsv", ".txt"},
		Columns:     4,
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// firstRow returns the columns of the first data line of a file.
func firstRow(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Split(line, "\t"), nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return nil, fmt.Errorf("file %s has no rows", filename)
}

// isQID reports whether s looks like a knowledge base identifier (Q42).
func isQID(s string) bool {
	if len(s) < 2 || s[0] != 'Q' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

// ValidateFileFormat checks that a file looks like the expected table.
func ValidateFileFormat(filename string, expected FileFormat) error {
	info, ok := supportedFormats[expected]
	if !ok {
		return fmt.Errorf("unknown format: %v", expected)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, e := range info.Extensions {
		if ext == e {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for %s (expected: %v)",
			filename, ext, info.Description, info.Extensions)
	}

	cols, err := firstRow(filename)
	if err != nil {
		return err
	}
	switch expected {
	case FormatAliases:
		if len(cols) < 2 || !isQID(strings.TrimSpace(cols[1])) {
			return fmt.Errorf("file %s: first row is not alias<TAB>qid[<TAB>frequency]", filename)
		}
	case FormatEntities:
		if len(cols) < 2 || !isQID(strings.TrimSpace(cols[0])) {
			return fmt.Errorf("file %s: first row is not qid<TAB>title<TAB>image<TAB>abstract", filename)
		}
	}
	log.Debugf("%s %s validated", info.Description, filename)
	return nil
}

// DetectFileFormat guesses the table kind from the first row.
func DetectFileFormat(filename string) (FileFormat, error) {
	cols, err := firstRow(filename)
	if err != nil {
		return FormatUnknown, err
	}
	switch {
	case len(cols) >= 2 && isQID(strings.TrimSpace(cols[0])):
		return FormatEntities, nil
	case len(cols) >= 2 && isQID(strings.TrimSpace(cols[1])):
		return FormatAliases, nil
	}
	return FormatUnknown, fmt.Errorf("unable to detect format for file %s", filename)
}

// GetFormatInfo returns information about a specific format.
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}
