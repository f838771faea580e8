// Package report implements the result sinks the scheduler writes to:
// console output in text or JSON-lines form, and DOT graph export.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kestrelbio/poabatch/internal/align"
	"github.com/kestrelbio/poabatch/internal/poa"
)

// Format selects the console output encoding.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{FormatText, FormatJSON}

// IsValidFormat reports whether format is one of ValidFormats.
func IsValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ConsoleSink writes per-group results and progress lines to one writer.
//
// Text mode mirrors the classic console output: raw consensus or MSA rows,
// then "Processed groups X - Y (batch B)" per completed flush. JSON mode
// emits one object per line with a "type" discriminator, which is easier
// for downstream tooling to consume.
type ConsoleSink struct {
	w      io.Writer
	format string
}

// NewConsoleSink creates a sink writing to w in the given format.
func NewConsoleSink(w io.Writer, format string) (*ConsoleSink, error) {
	if !IsValidFormat(format) {
		return nil, fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
	}
	return &ConsoleSink{w: w, format: format}, nil
}

type consensusLine struct {
	Type      string `json:"type"`
	Group     int    `json:"group"`
	Consensus string `json:"consensus"`
	Coverage  []int  `json:"coverage,omitempty"`
}

type msaLine struct {
	Type  string   `json:"type"`
	Group int      `json:"group"`
	Rows  []string `json:"rows"`
}

type progressLine struct {
	Type  string `json:"type"`
	First int    `json:"first"`
	Last  int    `json:"last"`
	Batch int    `json:"batch"`
}

// Consensus implements scheduler.Sink.
func (s *ConsoleSink) Consensus(groupID int, res poa.ConsensusResult) error {
	if s.format == FormatJSON {
		return s.emit(consensusLine{Type: "consensus", Group: groupID, Consensus: res.Seq, Coverage: res.Coverage})
	}
	_, err := fmt.Fprintln(s.w, res.Seq)
	return err
}

// MSA implements scheduler.Sink.
func (s *ConsoleSink) MSA(groupID int, rows []string) error {
	if s.format == FormatJSON {
		return s.emit(msaLine{Type: "msa", Group: groupID, Rows: rows})
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(s.w, row); err != nil {
			return err
		}
	}
	return nil
}

// Progress implements scheduler.Sink.
func (s *ConsoleSink) Progress(first, last, batchNum int) error {
	if s.format == FormatJSON {
		return s.emit(progressLine{Type: "progress", First: first, Last: last, Batch: batchNum})
	}
	_, err := fmt.Fprintf(s.w, "Processed groups %d - %d (batch %d)\n", first, last, batchNum)
	return err
}

func (s *ConsoleSink) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output line: %w", err)
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}

// DOTExporter appends each exported graph to one output stream as a DOT
// document. Implements scheduler.GraphExporter.
type DOTExporter struct {
	w io.Writer
}

// NewDOTExporter creates an exporter writing to w.
func NewDOTExporter(w io.Writer) *DOTExporter {
	return &DOTExporter{w: w}
}

// ExportGraph serializes one group's alignment graph.
func (e *DOTExporter) ExportGraph(groupID int, g *align.Graph) error {
	if _, err := fmt.Fprintf(e.w, "// group %d\n", groupID); err != nil {
		return err
	}
	return g.WriteDOT(e.w)
}
