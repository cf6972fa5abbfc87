// Package pdbio reads and writes structures in the PDB fixed-column format.
// Only ATOM records are consumed: heteroatoms, waters and anisotropic records
// are skipped, and alternate locations other than blank or "A" are dropped so
// that each atom appears exactly once.
package pdbio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/turtacn/flexbind/pkg/errors"

	"github.com/turtacn/flexbind/internal/domain/structure"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parse reads a PDB stream into a Structure.  Chains and residues keep their
// file order; residue and chain identity come from the fixed columns, so the
// input must be column-aligned PDB, not mmCIF.  Records for a chain id that
// reappears after another chain fold into the existing chain, so every id
// maps to exactly one Chain.
func Parse(r io.Reader) (*structure.Structure, error) {
	s := &structure.Structure{}
	var (
		chainIdx = map[string]int{}
		cur      = -1
		curRes   *structure.Residue
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)
	lineNo := 0
	atoms := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM  ") {
			if strings.HasPrefix(line, "ENDMDL") {
				break // first model only
			}
			continue
		}
		if len(line) < 54 {
			return nil, apperrors.New(apperrors.ErrCodePDBParseFailed,
				"truncated ATOM record").WithDetail(fmt.Sprintf("line %d", lineNo))
		}

		altLoc := line[16]
		if altLoc != ' ' && altLoc != 'A' {
			continue
		}

		serial, _ := strconv.Atoi(strings.TrimSpace(line[6:11]))
		name := strings.TrimSpace(line[12:16])
		resName := strings.TrimSpace(line[17:20])
		chainID := strings.TrimSpace(line[21:22])
		resSeq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
		if err != nil {
			return nil, apperrors.New(apperrors.ErrCodePDBParseFailed,
				"bad residue number").WithDetail(fmt.Sprintf("line %d: %q", lineNo, line[22:26]))
		}
		iCode := strings.TrimSpace(line[26:27])

		x, errX := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, apperrors.New(apperrors.ErrCodePDBParseFailed,
				"bad coordinates").WithDetail(fmt.Sprintf("line %d", lineNo))
		}

		occupancy := 1.0
		if len(line) >= 60 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[54:60]), 64); err == nil {
				occupancy = v
			}
		}
		bfactor := 0.0
		if len(line) >= 66 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(line[60:66]), 64); err == nil {
				bfactor = v
			}
		}
		element := ""
		if len(line) >= 78 {
			element = strings.TrimSpace(line[76:78])
		}
		if element == "" && name != "" {
			element = name[:1]
		}

		if cur < 0 || s.Chains[cur].ID != chainID {
			idx, ok := chainIdx[chainID]
			if !ok {
				s.Chains = append(s.Chains, structure.Chain{ID: chainID})
				idx = len(s.Chains) - 1
				chainIdx[chainID] = idx
			}
			cur = idx
			curRes = nil
			if n := len(s.Chains[cur].Residues); n > 0 {
				curRes = &s.Chains[cur].Residues[n-1]
			}
		}
		curChain := &s.Chains[cur]
		if curRes == nil || curRes.Seq != resSeq || curRes.ICode != iCode {
			curChain.Residues = append(curChain.Residues, structure.Residue{
				Name: resName, Seq: resSeq, ICode: iCode,
			})
			curRes = &curChain.Residues[len(curChain.Residues)-1]
		}
		curRes.Atoms = append(curRes.Atoms, structure.Atom{
			Serial:    serial,
			Name:      name,
			Element:   element,
			Coord:     r3.Vec{X: x, Y: y, Z: z},
			Occupancy: occupancy,
			BFactor:   bfactor,
		})
		atoms++
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePDBParseFailed, "read failed")
	}
	if atoms == 0 {
		return nil, apperrors.New(apperrors.ErrCodePDBParseFailed, "no ATOM records found")
	}
	return s, nil
}

// Write emits s as column-aligned ATOM records with TER lines between chains
// and a final END.  Serials are renumbered from 1.
func Write(w io.Writer, s *structure.Structure) error {
	bw := bufio.NewWriter(w)
	serial := 0
	for ci := range s.Chains {
		c := &s.Chains[ci]
		for ri := range c.Residues {
			res := &c.Residues[ri]
			for ai := range res.Atoms {
				serial++
				a := &res.Atoms[ai]
				if _, err := fmt.Fprintf(bw,
					"ATOM  %5d %s %-3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
					serial, formatAtomName(a.Name), res.Name, c.ID, res.Seq, padICode(res.ICode),
					a.Coord.X, a.Coord.Y, a.Coord.Z, a.Occupancy, a.BFactor, a.Element,
				); err != nil {
					return err
				}
			}
		}
		if len(c.Residues) > 0 {
			last := &c.Residues[len(c.Residues)-1]
			serial++
			if _, err := fmt.Fprintf(bw, "TER   %5d      %-3s %1s%4d\n",
				serial, last.Name, c.ID, last.Seq); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(bw, "END"); err != nil {
		return err
	}
	return bw.Flush()
}

// formatAtomName renders an atom name into columns 13-16.  Names of up to
// three characters start at column 14 per convention; four-character names
// use the full field.
func formatAtomName(name string) string {
	if len(name) >= 4 {
		return name[:4]
	}
	return fmt.Sprintf(" %-3s", name)
}

func padICode(icode string) string {
	if icode == "" {
		return " "
	}
	return icode[:1]
}
