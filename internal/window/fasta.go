package window

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kestrelbio/poabatch/internal/poa"
)

// Record is one parsed FASTA sequence.
type Record struct {
	ID  string
	Seq []byte
}

// LoadFASTAWindows assembles groups from parallel FASTA files: group g holds
// record g from each input, in input order. Files may be ragged - a shorter
// file simply stops contributing past its last record. Gzipped inputs are
// detected by a .gz suffix; "-" reads from stdin.
//
// maxWindows caps the number of groups; zero or negative means no cap.
func LoadFASTAWindows(paths []string, maxWindows int) ([]poa.Group, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no FASTA inputs given")
	}

	perFile := make([][]Record, len(paths))
	longest := 0
	for i, path := range paths {
		records, err := readFASTA(path)
		if err != nil {
			return nil, err
		}
		perFile[i] = records
		if len(records) > longest {
			longest = len(records)
		}
	}

	if maxWindows > 0 && longest > maxWindows {
		longest = maxWindows
	}

	groups := make([]poa.Group, 0, longest)
	for g := 0; g < longest; g++ {
		var group poa.Group
		for _, records := range perFile {
			if g < len(records) {
				group.Entries = append(group.Entries, poa.Entry{Seq: records[g].Seq})
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func readFASTA(path string) ([]Record, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open FASTA file: %w", err)
		}
		defer f.Close()
		r = f
		if strings.HasSuffix(path, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return nil, fmt.Errorf("open gzipped FASTA file %s: %w", path, err)
			}
			defer gz.Close()
			r = gz
		}
	}
	records, err := ParseFASTA(r)
	if err != nil {
		return nil, fmt.Errorf("parse FASTA file %s: %w", path, err)
	}
	return records, nil
}

// ParseFASTA reads FASTA records from r. Sequence lines are concatenated;
// leading junk before the first header is an error.
func ParseFASTA(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	var records []Record
	var cur *Record
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			id := strings.Fields(string(line[1:]))
			name := ""
			if len(id) > 0 {
				name = id[0]
			}
			records = append(records, Record{ID: name})
			cur = &records[len(records)-1]
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: sequence data before first header", lineNo)
		}
		cur.Seq = append(cur.Seq, line...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}

	for _, rec := range records {
		if len(rec.Seq) == 0 {
			return nil, fmt.Errorf("record %q has no sequence data", rec.ID)
		}
	}
	return records, nil
}
