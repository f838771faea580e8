// Package window loads alignment groups from input files.
//
// Two input shapes are supported:
//
//   - a windows file: repeated blocks of a sequence count line followed by
//     that many raw sequence lines;
//   - one or more FASTA files, where group g is assembled from record g of
//     each file in input order.
//
// The loader owns the byte storage for every sequence; the poa.Entry values
// it hands out borrow from that storage and must not outlive the loader's
// result.
package window

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kestrelbio/poabatch/internal/poa"
)

// maxScanTokenSize allows single sequence lines of up to 64 MiB, well past
// anything the batch sizer would accept.
const maxScanTokenSize = 64 << 20

// LoadWindows parses a windows file into groups.
//
// Format: each window is a line holding the number of sequences, followed by
// exactly that many sequence lines. Blank lines between windows are
// tolerated. maxWindows caps the number of groups loaded; zero or negative
// means no cap.
func LoadWindows(path string, maxWindows int) ([]poa.Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open windows file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	var groups []poa.Group
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		count, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: expected sequence count, got %q", path, lineNo, line)
		}
		if count < 1 {
			return nil, fmt.Errorf("%s:%d: sequence count must be >= 1, got %d", path, lineNo, count)
		}

		group := poa.Group{Entries: make([]poa.Entry, 0, count)}
		for s := 0; s < count; s++ {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return nil, fmt.Errorf("read windows file: %w", err)
				}
				return nil, fmt.Errorf("%s:%d: window truncated: expected %d sequences, got %d", path, lineNo, count, s)
			}
			lineNo++
			seq := strings.TrimSpace(sc.Text())
			if seq == "" {
				return nil, fmt.Errorf("%s:%d: empty sequence line inside window", path, lineNo)
			}
			group.Entries = append(group.Entries, poa.Entry{Seq: []byte(seq)})
		}

		groups = append(groups, group)
		if maxWindows > 0 && len(groups) >= maxWindows {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read windows file: %w", err)
	}

	return groups, nil
}
