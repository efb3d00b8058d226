package domain

// ShapeClass describes what a column's sampled values look like.
type ShapeClass string

const (
	ShapeEmpty      ShapeClass = "empty"
	ShapeSerial     ShapeClass = "serial"
	ShapeNumeric    ShapeClass = "numeric"
	ShapeAlphabetic ShapeClass = "alphabetic"
	ShapeFreeText   ShapeClass = "free_text"
)

// Serial values are short, near fixed-width and mix letters with digits.
const (
	serialMaxLength = 40
	serialMaxStdDev = 2.0
)

// ClassifyShape derives the shape class from a computed profile. Serial
// shaped columns are the ones worth exposing as identifier lookups.
func ClassifyShape(p ColumnProfile) ShapeClass {
	if p.TotalSamples == 0 {
		return ShapeEmpty
	}
	c := p.CharacterComposition
	switch {
	case c.DigitRatio == 1:
		return ShapeNumeric
	case c.AlphaRatio == 1:
		return ShapeAlphabetic
	case c.AlphaRatio > 0 && c.DigitRatio > 0 &&
		p.LengthDistribution.Max < serialMaxLength &&
		p.LengthDistribution.StdDev <= serialMaxStdDev:
		return ShapeSerial
	}
	return ShapeFreeText
}
