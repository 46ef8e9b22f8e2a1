package service

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

// SpeciesSource abstracts the observation service reads the aggregator
// depends on, so tests can substitute a fake without a network.
type SpeciesSource interface {
	FetchAllSpecies(ctx context.Context, token string) ([]SpeciesRecord, error)
	FetchObservationsBySpecies(ctx context.Context, speciesID uint64, token string) ([]ObservationRecord, error)
}

// TaxonomyService derives aggregate statistics from the species and
// observation data owned by the observation service. It persists
// nothing: every report is recomputed from upstream on demand, and the
// output is deterministic given identical upstream data.
type TaxonomyService struct {
	Source SpeciesSource
}

func NewTaxonomyService(src SpeciesSource) *TaxonomyService {
	return &TaxonomyService{Source: src}
}

// Keyword is one entry of a keyword frequency table.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Occurrence ranks a species by its validated observation count.
type Occurrence struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Occurrences int     `json:"occurrences"`
	RarityScore float64 `json:"rarityScore"`
}

// FamilyMember is a species grouped into a classification bucket.
type FamilyMember struct {
	ID               uint64  `json:"id"`
	Name             string  `json:"name"`
	RarityScore      float64 `json:"rarityScore"`
	ObservationCount int     `json:"observationCount"`
}

// Family is a named classification bucket.
type Family struct {
	Name         string         `json:"name"`
	SpeciesCount int            `json:"speciesCount"`
	Species      []FamilyMember `json:"species"`
}

// SubSpecies is a synthesized variant of a well-observed species whose
// average danger level sits at one of the extremes.
type SubSpecies struct {
	ParentSpeciesID     uint64 `json:"parentSpeciesId"`
	ParentSpeciesName   string `json:"parentSpeciesName"`
	Name                string `json:"subSpeciesName"`
	Characteristics     string `json:"characteristics"`
	BasedOnObservations int    `json:"basedOnObservations"`
}

// Branch is a hypothetical evolutionary lineage derived from a
// classification bucket with at least two members.
type Branch struct {
	BranchID           int      `json:"branchId"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	SpeciesCount       int      `json:"speciesCount"`
	AncestorHypothesis string   `json:"ancestorHypothesis"`
	Descendants        []string `json:"descendants"`
}

// RarityDistribution buckets species by rarity score.
type RarityDistribution struct {
	Common   int `json:"common"`   // < 2.0
	Uncommon int `json:"uncommon"` // 2.0 .. 3.0
	Rare     int `json:"rare"`     // 3.0 .. 4.0
	VeryRare int `json:"veryRare"` // >= 4.0
}

// Summary holds the report's global counters.
type Summary struct {
	TotalSpecies                  int     `json:"totalSpecies"`
	TotalValidatedObservations    int     `json:"totalValidatedObservations"`
	AverageObservationsPerSpecies float64 `json:"averageObservationsPerSpecies"`
	TotalPendingObservations      int     `json:"totalPendingObservations"`
	TotalRejectedObservations     int     `json:"totalRejectedObservations"`
}

// Classification bundles families, sub-species and branches.
type Classification struct {
	Families             []Family     `json:"families"`
	SubSpecies           []SubSpecies `json:"subSpecies"`
	EvolutionaryBranches []Branch     `json:"evolutionaryBranches"`
}

// Report is the full taxonomy stats payload. With no species upstream
// only TotalSpecies and Message are populated.
type Report struct {
	TotalSpecies       int                 `json:"totalSpecies"`
	Message            string              `json:"message,omitempty"`
	Summary            *Summary            `json:"summary,omitempty"`
	SpeciesOccurrences []Occurrence        `json:"speciesOccurrences,omitempty"`
	RarityDistribution *RarityDistribution `json:"rarityDistribution,omitempty"`
	GlobalKeywords     []Keyword           `json:"globalKeywords,omitempty"`
	Classification     *Classification     `json:"taxonomicClassification,omitempty"`
	GeneratedAt        string              `json:"generatedAt,omitempty"`
}

// speciesStats is the per-species working set built during fan-out.
type speciesStats struct {
	ID             uint64
	Name           string
	RarityScore    float64
	ValidatedCount int
	TotalCount     int
	PendingCount   int
	RejectedCount  int
	Keywords       []Keyword
	Validated      []ObservationRecord
}

// Classification bucket names, evaluated in this order. The first
// matching rule wins.
const (
	familyRare         = "Rare Creatures"
	familyCommon       = "Common Abyssals"
	familyPredators    = "Predators"
	familyRecent       = "Recently Described"
	familyUnclassified = "Unclassified"
)

var familyOrder = []string{familyRare, familyCommon, familyPredators, familyRecent, familyUnclassified}

var dangerKeywords = map[string]bool{
	"danger":     true,
	"dangerous":  true,
	"predator":   true,
	"attack":     true,
	"aggressive": true,
}

var stopWords = map[string]bool{
	"this": true, "that": true, "these": true, "those": true,
	"with": true, "from": true, "have": true, "been": true,
	"were": true, "they": true, "them": true, "their": true,
	"there": true, "here": true, "which": true, "what": true,
	"when": true, "where": true, "while": true, "about": true,
	"into": true, "over": true, "under": true, "near": true,
	"very": true, "some": true, "also": true, "just": true,
	"then": true, "than": true, "more": true, "most": true,
	"such": true, "only": true, "each": true, "between": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "again": true, "will": true,
	"would": true, "could": true, "should": true, "does": true,
}

// GenerateStats pulls the full species list, fans out one fetch per
// species and derives the report. Individual fetch failures degrade
// that species to zero counts instead of failing the aggregation; only
// the initial species listing is fatal.
func (s *TaxonomyService) GenerateStats(ctx context.Context, token string) (Report, error) {
	species, err := s.Source.FetchAllSpecies(ctx, token)
	if err != nil {
		return Report{}, err
	}
	if len(species) == 0 {
		return Report{TotalSpecies: 0, Message: "no species found"}, nil
	}

	// Species are independent reads, so the fan-out runs fully in
	// parallel. Each goroutine owns exactly one slot of stats.
	stats := make([]speciesStats, len(species))
	var wg sync.WaitGroup
	for i, sp := range species {
		wg.Add(1)
		go func(i int, sp SpeciesRecord) {
			defer wg.Done()
			stats[i] = s.collectSpecies(ctx, sp, token)
		}(i, sp)
	}
	wg.Wait()

	return buildReport(stats), nil
}

func (s *TaxonomyService) collectSpecies(ctx context.Context, sp SpeciesRecord, token string) speciesStats {
	st := speciesStats{ID: sp.ID, Name: sp.Name, RarityScore: sp.RarityScore}

	obs, err := s.Source.FetchObservationsBySpecies(ctx, sp.ID, token)
	if err != nil {
		log.Printf("taxonomy: fetching observations for species %d failed: %v", sp.ID, err)
		return st
	}

	var descriptions []string
	for _, o := range obs {
		st.TotalCount++
		switch o.Status {
		case "PENDING":
			st.PendingCount++
		case "REJECTED":
			st.RejectedCount++
		case "VALIDATED":
			if o.DeletedAt == nil {
				st.ValidatedCount++
				st.Validated = append(st.Validated, o)
				descriptions = append(descriptions, o.Description)
			}
		}
	}
	st.Keywords = AnalyzeKeywords(descriptions)
	return st
}

func buildReport(stats []speciesStats) Report {
	totalValidated, totalPending, totalRejected := 0, 0, 0
	var allDescriptions []string
	for _, st := range stats {
		totalValidated += st.ValidatedCount
		totalPending += st.PendingCount
		totalRejected += st.RejectedCount
		for _, o := range st.Validated {
			allDescriptions = append(allDescriptions, o.Description)
		}
	}

	occurrences := make([]Occurrence, len(stats))
	for i, st := range stats {
		occurrences[i] = Occurrence{ID: st.ID, Name: st.Name, Occurrences: st.ValidatedCount, RarityScore: st.RarityScore}
	}
	// Stable sort keeps upstream order among ties, which keeps the
	// report deterministic.
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Occurrences > occurrences[j].Occurrences
	})

	var dist RarityDistribution
	for _, st := range stats {
		switch {
		case st.RarityScore < 2.0:
			dist.Common++
		case st.RarityScore < 3.0:
			dist.Uncommon++
		case st.RarityScore < 4.0:
			dist.Rare++
		default:
			dist.VeryRare++
		}
	}

	families := classifyIntoFamilies(stats)

	avg := float64(totalValidated) / float64(len(stats))
	return Report{
		TotalSpecies: len(stats),
		Summary: &Summary{
			TotalSpecies:                  len(stats),
			TotalValidatedObservations:    totalValidated,
			AverageObservationsPerSpecies: math.Round(avg*100) / 100,
			TotalPendingObservations:      totalPending,
			TotalRejectedObservations:     totalRejected,
		},
		SpeciesOccurrences: occurrences,
		RarityDistribution: &dist,
		GlobalKeywords:     AnalyzeKeywords(allDescriptions),
		Classification: &Classification{
			Families:             families,
			SubSpecies:           synthesizeSubSpecies(stats),
			EvolutionaryBranches: deriveBranches(families),
		},
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// AnalyzeKeywords builds a frequency table over the given descriptions:
// lowercase, split on non-alphanumeric runes, drop stopwords and tokens
// of three characters or fewer, rank by frequency and return the top
// ten. Ties break alphabetically so the output is stable.
func AnalyzeKeywords(descriptions []string) []Keyword {
	counts := map[string]int{}
	for _, desc := range descriptions {
		words := strings.FieldsFunc(strings.ToLower(desc), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if len(w) <= 3 || stopWords[w] {
				continue
			}
			counts[w]++
		}
	}

	out := make([]Keyword, 0, len(counts))
	for w, n := range counts {
		out = append(out, Keyword{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// classifyIntoFamilies sorts species into named buckets. Empty buckets
// are dropped from the result.
func classifyIntoFamilies(stats []speciesStats) []Family {
	buckets := map[string][]FamilyMember{}
	for _, st := range stats {
		member := FamilyMember{ID: st.ID, Name: st.Name, RarityScore: st.RarityScore, ObservationCount: st.ValidatedCount}
		buckets[familyFor(st)] = append(buckets[familyFor(st)], member)
	}

	var out []Family
	for _, name := range familyOrder {
		members := buckets[name]
		if len(members) == 0 {
			continue
		}
		out = append(out, Family{Name: name, SpeciesCount: len(members), Species: members})
	}
	return out
}

func familyFor(st speciesStats) string {
	switch {
	case st.RarityScore >= 3.0:
		return familyRare
	case st.ValidatedCount > 10:
		return familyCommon
	case hasDangerKeyword(st.Keywords):
		return familyPredators
	case st.ValidatedCount <= 2:
		return familyRecent
	default:
		return familyUnclassified
	}
}

func hasDangerKeyword(keywords []Keyword) bool {
	for _, kw := range keywords {
		if dangerKeywords[kw.Word] {
			return true
		}
	}
	return false
}

// synthesizeSubSpecies derives variants for species with at least five
// validated observations whose average danger level sits at an extreme
// (>= 4 aggressive, <= 2 docile).
func synthesizeSubSpecies(stats []speciesStats) []SubSpecies {
	var out []SubSpecies
	for _, st := range stats {
		if st.ValidatedCount < 5 {
			continue
		}
		sum, high, low := 0, 0, 0
		for _, o := range st.Validated {
			sum += o.DangerLevel
			if o.DangerLevel >= 4 {
				high++
			}
			if o.DangerLevel <= 2 {
				low++
			}
		}
		avg := float64(sum) / float64(len(st.Validated))

		if avg >= 4 {
			out = append(out, SubSpecies{
				ParentSpeciesID:     st.ID,
				ParentSpeciesName:   st.Name,
				Name:                st.Name + " - Aggressive Variant",
				Characteristics:     "High danger level, aggressive behavior",
				BasedOnObservations: high,
			})
		}
		if avg <= 2 {
			out = append(out, SubSpecies{
				ParentSpeciesID:     st.ID,
				ParentSpeciesName:   st.Name,
				Name:                st.Name + " - Docile Variant",
				Characteristics:     "Low danger level, docile behavior",
				BasedOnObservations: low,
			})
		}
	}
	return out
}

// deriveBranches turns every family with at least two members into a
// hypothetical evolutionary lineage.
func deriveBranches(families []Family) []Branch {
	var out []Branch
	for _, f := range families {
		if f.SpeciesCount < 2 {
			continue
		}
		descendants := make([]string, 0, 3)
		for _, m := range f.Species[1:] {
			descendants = append(descendants, m.Name)
			if len(descendants) == 3 {
				break
			}
		}
		out = append(out, Branch{
			BranchID:           len(out) + 1,
			Name:               f.Name + " Branch",
			Description:        "Hypothetical evolutionary lineage of the " + f.Name + " family",
			SpeciesCount:       f.SpeciesCount,
			AncestorHypothesis: f.Species[0].Name,
			Descendants:        descendants,
		})
	}
	return out
}
