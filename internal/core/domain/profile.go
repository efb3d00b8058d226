package domain

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Character classes reported per position.
const (
	ClassLetter = "letter"
	ClassDigit  = "digit"
	ClassSymbol = "symbol"
)

// LengthDistribution summarizes value lengths in runes.
type LengthDistribution struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mode   int     `json:"mode"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// PositionStat describes the characters seen at one offset.
type PositionStat struct {
	Pos          int     `json:"pos"`
	DominantType string  `json:"dominant_type"`
	Entropy      float64 `json:"entropy"`
}

// CharacterComposition holds class ratios over all characters sampled.
type CharacterComposition struct {
	AlphaRatio       float64        `json:"alpha_ratio"`
	DigitRatio       float64        `json:"digit_ratio"`
	SymbolRatio      float64        `json:"symbol_ratio"`
	PositionAnalysis []PositionStat `json:"position_analysis"`
}

// ColumnProfile is the statistical fingerprint of a column's sampled values.
type ColumnProfile struct {
	TotalSamples         int                  `json:"total_samples"`
	UniqueCount          int                  `json:"unique_count"`
	LengthDistribution   LengthDistribution   `json:"length_distribution"`
	CharacterComposition CharacterComposition `json:"character_composition"`
	// Pattern is a per-position template: the literal character where a
	// position never varies, else A (letter), 9 (digit) or # (symbol).
	Pattern string     `json:"pattern"`
	Shape   ShapeClass `json:"shape"`
}

func classOf(r rune) int {
	switch {
	case unicode.IsLetter(r):
		return 0
	case unicode.IsDigit(r):
		return 1
	}
	return 2
}

var (
	classNames    = [3]string{ClassLetter, ClassDigit, ClassSymbol}
	classPatterns = [3]byte{'A', '9', '#'}
)

// ProfileColumn computes the fingerprint of already sampled values. Empty
// input yields a zero profile.
func ProfileColumn(samples []string) ColumnProfile {
	p := ColumnProfile{
		CharacterComposition: CharacterComposition{PositionAnalysis: []PositionStat{}},
		Shape:                ShapeEmpty,
	}
	if len(samples) == 0 {
		return p
	}

	values := make([][]rune, len(samples))
	lengths := make([]int, len(samples))
	unique := make(map[string]struct{}, len(samples))
	var classTotals [3]int
	total, maxLen := 0, 0
	for i, s := range samples {
		values[i] = []rune(s)
		lengths[i] = len(values[i])
		unique[s] = struct{}{}
		for _, r := range values[i] {
			classTotals[classOf(r)]++
		}
		total += lengths[i]
		maxLen = max(maxLen, lengths[i])
	}

	p.TotalSamples = len(samples)
	p.UniqueCount = len(unique)
	p.LengthDistribution = lengthStats(lengths)
	if total > 0 {
		p.CharacterComposition.AlphaRatio = round2(float64(classTotals[0]) / float64(total))
		p.CharacterComposition.DigitRatio = round2(float64(classTotals[1]) / float64(total))
		p.CharacterComposition.SymbolRatio = round2(float64(classTotals[2]) / float64(total))
	}

	var pattern strings.Builder
	for pos := 0; pos < maxLen; pos++ {
		stat, fixed := positionStat(values, pos)
		p.CharacterComposition.PositionAnalysis = append(p.CharacterComposition.PositionAnalysis, stat)
		if stat.Entropy == 0 {
			pattern.WriteRune(fixed)
			continue
		}
		for i, name := range classNames {
			if name == stat.DominantType {
				pattern.WriteByte(classPatterns[i])
			}
		}
	}
	p.Pattern = pattern.String()
	p.Shape = ClassifyShape(p)
	return p
}

// positionStat returns the entropy and dominant class at pos over values
// long enough to have it, plus the character seen there when it never varies.
func positionStat(values [][]rune, pos int) (PositionStat, rune) {
	counts := make(map[rune]int)
	var classes [3]int
	n := 0
	var last rune
	for _, v := range values {
		if pos >= len(v) {
			continue
		}
		r := v[pos]
		counts[r]++
		classes[classOf(r)]++
		last = r
		n++
	}

	entropy := 0.0
	for _, c := range counts {
		q := float64(c) / float64(n)
		entropy -= q * math.Log2(q)
	}

	dominant := 0
	for i := 1; i < len(classes); i++ {
		if classes[i] > classes[dominant] {
			dominant = i
		}
	}
	return PositionStat{Pos: pos, DominantType: classNames[dominant], Entropy: entropy}, last
}

func lengthStats(lengths []int) LengthDistribution {
	sorted := append([]int(nil), lengths...)
	sort.Ints(sorted)
	n := len(sorted)

	d := LengthDistribution{Min: sorted[0], Max: sorted[n-1]}
	if n%2 == 1 {
		d.Median = float64(sorted[n/2])
	} else {
		d.Median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}

	freq := make(map[int]int)
	sum := 0
	for _, l := range sorted {
		freq[l]++
		sum += l
	}
	best := -1
	for _, l := range sorted {
		if best < 0 || freq[l] > freq[best] {
			best = l
		}
	}
	d.Mode = best

	mean := float64(sum) / float64(n)
	variance := 0.0
	for _, l := range sorted {
		diff := float64(l) - mean
		variance += diff * diff
	}
	d.StdDev = math.Sqrt(variance / float64(n))
	return d
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
