package valueobjects

import "fmt"

// Direction selects which edge directions a neighbor query traverses
type Direction string

const (
	DirectionBoth     Direction = "both"
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// ParseDirection validates a direction string, defaulting to both
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "":
		return DirectionBoth, nil
	case DirectionBoth, DirectionOutgoing, DirectionIncoming:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// SourceType categorizes how a memory unit was produced
type SourceType string

const (
	SourceTypeInsight      SourceType = "insight"
	SourceTypeEpisode      SourceType = "episode"
	SourceTypeGraphDerived SourceType = "graph_derived"
)

// ParseSourceType validates a source type string
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceTypeInsight, SourceTypeEpisode, SourceTypeGraphDerived:
		return SourceType(s), nil
	default:
		return "", fmt.Errorf("unknown source_type %q", s)
	}
}

// Sector is the topical category of a memory unit
type Sector string

const (
	SectorGeneral    Sector = "general"
	SectorTechnical  Sector = "technical"
	SectorPersonal   Sector = "personal"
	SectorPlanning   Sector = "planning"
	SectorReflection Sector = "reflection"
)

// ParseSector validates a sector string
func ParseSector(s string) (Sector, error) {
	switch Sector(s) {
	case SectorGeneral, SectorTechnical, SectorPersonal, SectorPlanning, SectorReflection:
		return Sector(s), nil
	default:
		return "", fmt.Errorf("unknown sector %q", s)
	}
}
