// Package preprocess turns raw parsed chains into the pipeline's working
// input: cleaned structures, a merged complex, and the resolved flexible set.
//
// Flexible-set resolution tries, in order: an explicit residue list, CDR
// ranges for antibody Fv binders, interface auto-detection by Calpha
// distance, and finally every binder residue (with a warning, since full
// flexibility makes the search much wider).
package preprocess

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// FlexibleSource records which resolution strategy produced the flexible set.
type FlexibleSource string

const (
	SourceExplicit  FlexibleSource = "explicit"
	SourceCDR       FlexibleSource = "cdr"
	SourceInterface FlexibleSource = "interface"
	SourceFallback  FlexibleSource = "fallback"
)

// cdrRanges are the Chothia-numbered CDR windows per Fv chain.
var cdrRanges = map[string][][2]int{
	"H": {{26, 32}, {52, 56}, {95, 102}},
	"L": {{24, 34}, {50, 56}, {89, 97}},
}

// Params is the preprocessing input.
type Params struct {
	Target *structure.Structure
	Binder *structure.Structure
	// FlexibleSpec is an explicit residue list like "B:30, B:31, B:52";
	// empty means automatic resolution.
	FlexibleSpec string
	BinderType   design.BinderType
	// InterfaceDistance is the Calpha-Calpha cutoff for auto-detection.
	InterfaceDistance float64
}

// Result is the preprocessing output consumed by the sampling stage.
type Result struct {
	// Complex is the merged target+binder structure.
	Complex *structure.Structure
	// BinderChains lists the binder's chain ids inside Complex, which may
	// have been renamed to avoid collisions with target chains.
	BinderChains []string
	// Flexible is the resolved flexible set, sorted canonically.
	Flexible []structure.ResidueID
	Source   FlexibleSource
	// DroppedResidues counts residues removed by cleaning.
	DroppedResidues int
}

// Run cleans both structures, merges them, and resolves the flexible set.
func Run(p Params, log logging.Logger) (*Result, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if p.Target == nil || p.Binder == nil {
		return nil, apperrors.InvalidInput("preprocessing needs both a target and a binder structure")
	}

	target, droppedT, err := Clean(p.Target)
	if err != nil {
		return nil, err
	}
	binder, droppedB, err := Clean(p.Binder)
	if err != nil {
		return nil, err
	}
	if droppedT+droppedB > 0 {
		log.Info("cleaned input structures",
			logging.Int("dropped_target", droppedT),
			logging.Int("dropped_binder", droppedB))
	}

	complexS, binderChains := merge(target, binder)

	flexible, source, err := resolveFlexible(complexS, binderChains, p, log)
	if err != nil {
		return nil, err
	}
	structure.SortResidueIDs(flexible)

	return &Result{
		Complex:         complexS,
		BinderChains:    binderChains,
		Flexible:        flexible,
		Source:          source,
		DroppedResidues: droppedT + droppedB,
	}, nil
}

// Clean drops non-standard residues and residues without an alpha carbon.
// It returns the cleaned copy and the number of residues removed.
func Clean(s *structure.Structure) (*structure.Structure, int, error) {
	out := &structure.Structure{}
	dropped := 0
	for ci := range s.Chains {
		src := &s.Chains[ci]
		dst := structure.Chain{ID: src.ID}
		for ri := range src.Residues {
			r := &src.Residues[ri]
			if !structure.IsStandardResidue(r.Name) || r.CA() == nil {
				dropped++
				continue
			}
			kept := *r
			kept.Atoms = append([]structure.Atom(nil), r.Atoms...)
			dst.Residues = append(dst.Residues, kept)
		}
		if len(dst.Residues) > 0 {
			out.Chains = append(out.Chains, dst)
		}
	}
	if out.ResidueCount() == 0 {
		return nil, dropped, apperrors.New(apperrors.ErrCodeNoResiduesAfterClean,
			"no standard residues left after cleaning")
	}
	return out, dropped, nil
}

// merge combines target and binder into one structure.  Binder chains whose
// id collides with a target chain are renamed to the first free letter.
func merge(target, binder *structure.Structure) (*structure.Structure, []string) {
	out := target.Clone()
	used := map[string]bool{}
	for _, id := range out.ChainIDs() {
		used[id] = true
	}

	var binderChains []string
	for ci := range binder.Chains {
		c := binder.Chains[ci]
		id := c.ID
		if used[id] {
			id = freeChainID(used)
		}
		used[id] = true
		renamed := structure.Chain{ID: id, Residues: c.Residues}
		out.Chains = append(out.Chains, *cloneChain(&renamed))
		binderChains = append(binderChains, id)
	}
	return out, binderChains
}

func cloneChain(c *structure.Chain) *structure.Chain {
	out := structure.Chain{ID: c.ID}
	for ri := range c.Residues {
		r := c.Residues[ri]
		r.Atoms = append([]structure.Atom(nil), c.Residues[ri].Atoms...)
		out.Residues = append(out.Residues, r)
	}
	return &out
}

func freeChainID(used map[string]bool) string {
	for c := 'A'; c <= 'Z'; c++ {
		if !used[string(c)] {
			return string(c)
		}
	}
	// 26 chains is already beyond anything this pipeline handles.
	return "?"
}

func resolveFlexible(complexS *structure.Structure, binderChains []string, p Params, log logging.Logger) ([]structure.ResidueID, FlexibleSource, error) {
	binderSet := map[string]bool{}
	for _, id := range binderChains {
		binderSet[id] = true
	}

	if strings.TrimSpace(p.FlexibleSpec) != "" {
		ids, err := ParseFlexibleSpec(p.FlexibleSpec)
		if err != nil {
			return nil, "", err
		}
		for _, id := range ids {
			if !binderSet[id.ChainID] {
				return nil, "", apperrors.New(apperrors.ErrCodeFlexibleSpecInvalid,
					"flexible residue is not on a binder chain").WithDetail(id.String())
			}
			if complexS.Lookup(id) == nil {
				return nil, "", apperrors.New(apperrors.ErrCodeFlexibleSpecInvalid,
					"flexible residue does not exist").WithDetail(id.String())
			}
		}
		return ids, SourceExplicit, nil
	}

	if p.BinderType == design.BinderAntibodyFv {
		if ids := cdrResidues(complexS, binderChains); len(ids) > 0 {
			log.Info("flexible set from CDR ranges", logging.Int("residues", len(ids)))
			return ids, SourceCDR, nil
		}
		log.Warn("antibody binder without H/L numbered chains, falling back to interface detection")
	}

	if ids := interfaceResidues(complexS, binderSet, p.InterfaceDistance); len(ids) > 0 {
		log.Info("flexible set from interface detection",
			logging.Int("residues", len(ids)),
			logging.Float64("cutoff", p.InterfaceDistance))
		return ids, SourceInterface, nil
	}

	log.Warn("no interface residues within cutoff, treating the whole binder as flexible")
	var all []structure.ResidueID
	for _, chainID := range binderChains {
		c := complexS.Chain(chainID)
		for ri := range c.Residues {
			all = append(all, structure.ResidueID{ChainID: chainID, Seq: c.Residues[ri].Seq})
		}
	}
	if len(all) == 0 {
		return nil, "", apperrors.New(apperrors.ErrCodeInterfaceNotFound,
			"binder has no residues to flex")
	}
	return all, SourceFallback, nil
}

// ParseFlexibleSpec parses "A:30, A:31, B:52" into residue ids.
func ParseFlexibleSpec(spec string) ([]structure.ResidueID, error) {
	var out []structure.ResidueID
	seen := map[structure.ResidueID]bool{}
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, apperrors.New(apperrors.ErrCodeFlexibleSpecInvalid,
				"flexible residues must look like CHAIN:NUMBER").WithDetail(fmt.Sprintf("token %q", tok))
		}
		seq, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, apperrors.New(apperrors.ErrCodeFlexibleSpecInvalid,
				"residue number is not an integer").WithDetail(fmt.Sprintf("token %q", tok))
		}
		id := structure.ResidueID{ChainID: strings.TrimSpace(parts[0]), Seq: seq}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeFlexibleSpecInvalid, "flexible spec is empty")
	}
	return out, nil
}

// cdrResidues collects residues inside the CDR windows of binder chains
// named H or L.
func cdrResidues(complexS *structure.Structure, binderChains []string) []structure.ResidueID {
	var out []structure.ResidueID
	for _, chainID := range binderChains {
		ranges, ok := cdrRanges[chainID]
		if !ok {
			continue
		}
		c := complexS.Chain(chainID)
		for ri := range c.Residues {
			seq := c.Residues[ri].Seq
			for _, rng := range ranges {
				if seq >= rng[0] && seq <= rng[1] {
					out = append(out, structure.ResidueID{ChainID: chainID, Seq: seq})
					break
				}
			}
		}
	}
	return out
}

// interfaceResidues returns binder residues whose Calpha lies within cutoff
// of any target Calpha.
func interfaceResidues(complexS *structure.Structure, binderSet map[string]bool, cutoff float64) []structure.ResidueID {
	var out []structure.ResidueID
	for ci := range complexS.Chains {
		bc := &complexS.Chains[ci]
		if !binderSet[bc.ID] {
			continue
		}
		for ri := range bc.Residues {
			ca := bc.Residues[ri].CA()
			if ca == nil {
				continue
			}
			if nearTargetCA(complexS, binderSet, ca.Coord, cutoff) {
				out = append(out, structure.ResidueID{ChainID: bc.ID, Seq: bc.Residues[ri].Seq})
			}
		}
	}
	return out
}

func nearTargetCA(complexS *structure.Structure, binderSet map[string]bool, p r3.Vec, cutoff float64) bool {
	for ci := range complexS.Chains {
		tc := &complexS.Chains[ci]
		if binderSet[tc.ID] {
			continue
		}
		for ri := range tc.Residues {
			ca := tc.Residues[ri].CA()
			if ca == nil {
				continue
			}
			if structure.Distance(ca.Coord, p) <= cutoff {
				return true
			}
		}
	}
	return false
}
