package types

import (
	"errors"
	"fmt"
)

// Quality tiers in descending preference order. The order is total and only
// ever walked downward during negotiation.
type Quality int

const (
	QualityFLAC Quality = iota
	QualityMP3High
	QualityMP3Mid
)

// qualityOrder lists tiers from most to least preferred.
var qualityOrder = [...]Quality{QualityFLAC, QualityMP3High, QualityMP3Mid}

func (q Quality) String() string {
	switch q {
	case QualityFLAC:
		return "flac"
	case QualityMP3High:
		return "high"
	case QualityMP3Mid:
		return "mid"
	}

	return "unknown"
}

func ParseQuality(s string) (Quality, error) {
	switch s {
	case "flac":
		return QualityFLAC, nil
	case "high":
		return QualityMP3High, nil
	case "mid":
		return QualityMP3Mid, nil
	default:
		return 0, fmt.Errorf("unknown quality %q, expected one of: flac, high, mid", s)
	}
}

type Container int

const (
	ContainerFLAC Container = iota
	ContainerMP3
)

func (c Container) String() string {
	switch c {
	case ContainerFLAC:
		return "flac"
	case ContainerMP3:
		return "mp3"
	}

	return "unknown"
}

func (q Quality) Container() Container {
	switch q {
	case QualityFLAC:
		return ContainerFLAC
	case QualityMP3High, QualityMP3Mid:
		return ContainerMP3
	default:
		panic(fmt.Sprintf("unexpected quality: %d", int(q)))
	}
}

// Ext returns the file extension for the container carrying this tier.
func (q Quality) Ext() string {
	return q.Container().String()
}

// Availability declares, per tier, whether the catalog can serve a playable
// stream for a track.
type Availability struct {
	FLAC    bool
	MP3High bool
	MP3Mid  bool
}

func (a Availability) has(q Quality) bool {
	switch q {
	case QualityFLAC:
		return a.FLAC
	case QualityMP3High:
		return a.MP3High
	case QualityMP3Mid:
		return a.MP3Mid
	default:
		return false
	}
}

var ErrQualityUnavailable = errors.New("no stream available at or below the requested quality")

// Negotiate picks the best deliverable tier at or below requested. It walks
// the tier order downward and returns the first available one; the result is
// re-derivable from the availability set alone.
func Negotiate(requested Quality, avail Availability) (Quality, error) {
	for _, q := range qualityOrder {
		if q < requested {
			continue
		}

		if avail.has(q) {
			return q, nil
		}
	}

	return 0, ErrQualityUnavailable
}
