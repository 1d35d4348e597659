package auralis

import (
	"context"
	"fmt"
	"sort"

	"github.com/matiaszanolli/auralis-fpcore/internal/distance"
	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
	"github.com/matiaszanolli/auralis-fpcore/internal/normalize"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

// prefilterFactor scales n into the candidate pool size before dimension
// pre-filtering: up to n*prefilterFactor candidates are considered before
// full distance calculation.
const prefilterFactor = 10

// prefilterTolerances are the original-scale tolerance windows applied around
// a target fingerprint's most distinctive dimensions before calculating
// full weighted distance against every remaining candidate.
var prefilterTolerances = map[string]float64{
	"lufs":      3.0,
	"crest_db":  2.0,
	"bass_pct":  8.0,
	"tempo_bpm": 15.0,
}

// SimilarityResult is one match from a similarity search.
type SimilarityResult struct {
	TrackID         int64
	Distance        float64
	SimilarityScore float64
}

// DimensionContribution names one dimension's share of a pairwise distance.
type DimensionContribution struct {
	Dimension    string
	Contribution float64
}

// SimilarityExplanation breaks a pairwise distance down by dimension.
type SimilarityExplanation struct {
	TrackID1         int64
	TrackID2         int64
	Distance         float64
	SimilarityScore  float64
	TopDifferences   []DimensionContribution
	AllContributions map[string]float64
}

// Similarity combines normalization and weighted distance into a
// library-wide nearest-neighbor search.
type Similarity struct {
	fingerprints *storage.FingerprintRepository
	normalizer   *normalize.Normalizer
	calculator   *distance.Calculator
	fitted       bool
}

// NewSimilarity builds a Similarity system over the given fingerprint
// repository and distance weights. Call Fit before searching.
func NewSimilarity(fingerprints *storage.FingerprintRepository, weights distance.Weights) *Similarity {
	return &Similarity{
		fingerprints: fingerprints,
		normalizer:   normalize.New(),
		calculator:   distance.NewCalculator(weights),
	}
}

// Fit calculates normalization statistics from every stored fingerprint.
func (s *Similarity) Fit(ctx context.Context, minSamples int) error {
	rows, err := s.fingerprints.GetAll(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("fetching fingerprints to fit normalizer: %w", err)
	}

	vectors := make([][DimensionCount]float64, len(rows))
	for i, row := range rows {
		vectors[i] = row.Vector
	}

	if err := s.normalizer.Fit(vectors, minSamples); err != nil {
		return err
	}

	s.fitted = true

	return nil
}

// IsFitted reports whether Fit (or loading saved normalizer stats) has run.
func (s *Similarity) IsFitted() bool {
	return s.fitted
}

// LoadNormalizer loads previously persisted normalization stats, marking
// the system fitted on success.
func (s *Similarity) LoadNormalizer(path string) error {
	if err := s.normalizer.Load(path); err != nil {
		return err
	}

	s.fitted = true

	return nil
}

// SaveNormalizer persists the current normalization stats.
func (s *Similarity) SaveNormalizer(path string) error {
	return s.normalizer.Save(path)
}

// FindSimilar returns the n most similar tracks to trackID, sorted most
// similar first. usePrefilter restricts the candidate pool with
// dimension-range tolerances before computing full weighted distance.
func (s *Similarity) FindSimilar(ctx context.Context, trackID int64, n int, usePrefilter bool) ([]SimilarityResult, error) {
	if !s.fitted {
		return nil, errs.ErrNotFitted
	}

	targetRow, err := s.fingerprints.GetByTrackID(ctx, trackID)
	if err != nil {
		return nil, err
	}

	targetVector, err := s.normalizer.Normalize(targetRow.Vector)
	if err != nil {
		return nil, err
	}

	var candidates []distance.Candidate

	if usePrefilter {
		candidates, err = s.prefilteredCandidates(ctx, targetRow, n*prefilterFactor)
	} else {
		candidates, err = s.allCandidates(ctx, trackID)
	}

	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	matches := s.calculator.FindClosestN(targetVector, candidates, n)

	results := make([]SimilarityResult, len(matches))
	for i, m := range matches {
		results[i] = SimilarityResult{
			TrackID:         m.TrackID,
			Distance:        m.Distance,
			SimilarityScore: distance.SimilarityScore(m.Distance, maxDistance),
		}
	}

	return results, nil
}

// maxDistance bounds the similarity-score normalization: the weighted
// Euclidean distance between two maximally dissimilar unit-normalized
// vectors (every dimension differing by the full [0,1] range) is
// sqrt(sum(weights)) = 1, since weights sum to 1.0 and (1-0)^2 = 1.
const maxDistance = 1.0

// CalculateSimilarity computes the similarity between two specific tracks.
func (s *Similarity) CalculateSimilarity(ctx context.Context, trackID1, trackID2 int64) (*SimilarityResult, error) {
	if !s.fitted {
		return nil, errs.ErrNotFitted
	}

	row1, err := s.fingerprints.GetByTrackID(ctx, trackID1)
	if err != nil {
		return nil, err
	}

	row2, err := s.fingerprints.GetByTrackID(ctx, trackID2)
	if err != nil {
		return nil, err
	}

	vec1, err := s.normalizer.Normalize(row1.Vector)
	if err != nil {
		return nil, err
	}

	vec2, err := s.normalizer.Normalize(row2.Vector)
	if err != nil {
		return nil, err
	}

	d := s.calculator.Calculate(vec1, vec2)

	return &SimilarityResult{
		TrackID:         trackID2,
		Distance:        d,
		SimilarityScore: distance.SimilarityScore(d, maxDistance),
	}, nil
}

// Explain returns a dimension-by-dimension breakdown of why two tracks are
// similar or different.
func (s *Similarity) Explain(ctx context.Context, trackID1, trackID2 int64, topN int) (*SimilarityExplanation, error) {
	if !s.fitted {
		return nil, errs.ErrNotFitted
	}

	row1, err := s.fingerprints.GetByTrackID(ctx, trackID1)
	if err != nil {
		return nil, err
	}

	row2, err := s.fingerprints.GetByTrackID(ctx, trackID2)
	if err != nil {
		return nil, err
	}

	vec1, err := s.normalizer.Normalize(row1.Vector)
	if err != nil {
		return nil, err
	}

	vec2, err := s.normalizer.Normalize(row2.Vector)
	if err != nil {
		return nil, err
	}

	d := s.calculator.Calculate(vec1, vec2)
	contributions := s.calculator.DimensionContributions(vec1, vec2)

	all := make(map[string]float64, DimensionCount)
	sorted := make([]DimensionContribution, DimensionCount)

	for i, name := range DimensionNames {
		all[name] = contributions[i]
		sorted[i] = DimensionContribution{Dimension: name, Contribution: contributions[i]}
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Contribution > sorted[j].Contribution })

	if topN > len(sorted) {
		topN = len(sorted)
	}

	return &SimilarityExplanation{
		TrackID1:         trackID1,
		TrackID2:         trackID2,
		Distance:         d,
		SimilarityScore:  distance.SimilarityScore(d, maxDistance),
		TopDifferences:   sorted[:topN],
		AllContributions: all,
	}, nil
}

func (s *Similarity) allCandidates(ctx context.Context, excludeTrackID int64) ([]distance.Candidate, error) {
	rows, err := s.fingerprints.GetAll(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching all fingerprints: %w", err)
	}

	candidates := make([]distance.Candidate, 0, len(rows))

	for _, row := range rows {
		if row.TrackID == excludeTrackID {
			continue
		}

		vec, err := s.normalizer.Normalize(row.Vector)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, distance.Candidate{TrackID: row.TrackID, Vector: vec})
	}

	return candidates, nil
}

// prefilteredCandidates restricts to tracks whose lufs, crest_db, bass_pct
// and tempo_bpm fall within fixed tolerances of the target, before
// normalizing and handing them to the distance calculator.
func (s *Similarity) prefilteredCandidates(ctx context.Context, target *storage.FingerprintRow, maxCandidates int) ([]distance.Candidate, error) {
	targetFP := &Fingerprint{}
	targetFP.FromVector(target.Vector)

	ranges := []storage.DimensionRange{
		{Dimension: "lufs", Min: targetFP.LUFS - prefilterTolerances["lufs"], Max: targetFP.LUFS + prefilterTolerances["lufs"]},
		{Dimension: "crest_db", Min: targetFP.CrestDB - prefilterTolerances["crest_db"], Max: targetFP.CrestDB + prefilterTolerances["crest_db"]},
		{Dimension: "bass_pct", Min: targetFP.BassPct - prefilterTolerances["bass_pct"], Max: targetFP.BassPct + prefilterTolerances["bass_pct"]},
		{Dimension: "tempo_bpm", Min: targetFP.TempoBPM - prefilterTolerances["tempo_bpm"], Max: targetFP.TempoBPM + prefilterTolerances["tempo_bpm"]},
	}

	rows, err := s.fingerprints.GetByMultiDimensionRange(ctx, ranges, target.TrackID, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("pre-filtering candidates: %w", err)
	}

	candidates := make([]distance.Candidate, 0, len(rows))

	for _, row := range rows {
		vec, err := s.normalizer.Normalize(row.Vector)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, distance.Candidate{TrackID: row.TrackID, Vector: vec})
	}

	return candidates, nil
}
