package model

// LinkStatus is the up/down state of a directed radio link. The numeric
// values are part of the per-step output (0 = down, 1 = up).
type LinkStatus int

const (
	LinkDown LinkStatus = iota
	LinkUp
)

func (s LinkStatus) String() string {
	if s == LinkUp {
		return "up"
	}
	return "down"
}

// LinkQuality is a coarse, human-readable classification of a link
// derived from its margin over the receiver sensitivity.
type LinkQuality string

const (
	LinkQualityDown      LinkQuality = "down"
	LinkQualityPoor      LinkQuality = "poor"
	LinkQualityFair      LinkQuality = "fair"
	LinkQualityGood      LinkQuality = "good"
	LinkQualityExcellent LinkQuality = "excellent"
)

// ClassifyMargin maps a link margin (received power minus receiver
// sensitivity, dB) to a quality bucket.
func ClassifyMargin(marginDB float64) LinkQuality {
	switch {
	case marginDB < 0:
		return LinkQualityDown
	case marginDB < 5:
		return LinkQualityPoor
	case marginDB < 10:
		return LinkQualityFair
	case marginDB < 20:
		return LinkQualityGood
	default:
		return LinkQualityExcellent
	}
}
