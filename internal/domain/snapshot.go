package domain

import "time"

// Snapshot is the data behind one rendered map: the joined rows, without
// geometry, plus the period they were filtered to. Year and Month are zero
// for maps without a period.
type Snapshot struct {
	ArtifactID  string
	Map         string
	Year        int
	Month       int
	GeneratedAt time.Time
	Records     []map[string]any
}

// NewSnapshot captures the rows of view.
func NewSnapshot(artifactID, mapName string, year, month int, generatedAt time.Time, view *Table) *Snapshot {
	return &Snapshot{
		ArtifactID:  artifactID,
		Map:         mapName,
		Year:        year,
		Month:       month,
		GeneratedAt: generatedAt,
		Records:     view.Records(),
	}
}
