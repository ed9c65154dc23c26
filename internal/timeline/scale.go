package timeline

// Nominal tick lengths. A tick is one minute.
const (
	TicksPerHour  int64 = 60
	TicksPerDay   int64 = 24 * TicksPerHour
	TicksPerWeek  int64 = 7 * TicksPerDay
	TicksPerMonth int64 = 30 * TicksPerDay
	TicksPerYear  int64 = 365 * TicksPerDay
)

// ReferencePixels is the on-screen width that one ScaleLevel.Ticks covers.
const ReferencePixels = 100

// Scale ladder bounds.
const (
	MinScaleIndex = -3
	MaxScaleIndex = 16
)

// ScaleLevel is one zoom step of the timeline.
type ScaleLevel struct {
	Index int    `json:"index"`
	Label string `json:"label"`

	// Ticks is the nominal duration shown across ReferencePixels.
	Ticks int64 `json:"ticks"`
}

// TimePerPixel returns the number of ticks a single pixel covers.
func (s ScaleLevel) TimePerPixel() float64 {
	return float64(s.Ticks) / ReferencePixels
}

var scales = [...]ScaleLevel{
	{-3, "2 hours", 2 * TicksPerHour},
	{-2, "6 hours", 6 * TicksPerHour},
	{-1, "12 hours", 12 * TicksPerHour},
	{0, "1 day", TicksPerDay},
	{1, "2 days", 2 * TicksPerDay},
	{2, "5 days", 5 * TicksPerDay},
	{3, "1 week", TicksPerWeek},
	{4, "2 weeks", 2 * TicksPerWeek},
	{5, "1 month", TicksPerMonth},
	{6, "2 months", 2 * TicksPerMonth},
	{7, "3 months", 3 * TicksPerMonth},
	{8, "6 months", 6 * TicksPerMonth},
	{9, "9 months", 9 * TicksPerMonth},
	{10, "1 year", TicksPerYear},
	{11, "2 years", 2 * TicksPerYear},
	{12, "5 years", 5 * TicksPerYear},
	{13, "10 years", 10 * TicksPerYear},
	{14, "50 years", 50 * TicksPerYear},
	{15, "100 years", 100 * TicksPerYear},
	{16, "250 years", 250 * TicksPerYear},
}

// Scales returns the whole ladder, finest first.
func Scales() []ScaleLevel {
	out := make([]ScaleLevel, len(scales))
	copy(out, scales[:])
	return out
}

// ScaleByIndex returns the scale level with the given index.
func ScaleByIndex(i int) (ScaleLevel, bool) {
	if i < MinScaleIndex || i > MaxScaleIndex {
		return ScaleLevel{}, false
	}
	return scales[i-MinScaleIndex], true
}

// Clamp limits i to the ladder.
func Clamp(i int) int {
	return min(max(i, MinScaleIndex), MaxScaleIndex)
}
