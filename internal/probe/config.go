package probe

import (
	"time"

	"github.com/okian/hotspot/internal/domain/types"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumQueries int           // Number of query points to generate
	RadiusKm   float64       // Radius sent with every query
	DedupeKm   float64       // Minimum separation expected between results
	Workers    int           // Number of concurrent workers
	Seed       int64         // Seed for query point generation
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for query results, "-" disables it
	LogFile    string        // Log file for probe output
	Verbose    bool          // Enable verbose logging
}

// Query is one probe query and what the service answered.
type Query struct {
	Zone     string              `json:"zone"`
	Request  types.QueryRequest  `json:"request"`
	Response types.QueryResponse `json:"response"`
}

// Stats holds probe statistics.
type Stats struct {
	QueriesGenerated  int
	QueriesSucceeded  int
	QueriesFailed     int
	Mismatched        int
	OrderViolations   int
	SpacingViolations int
	RadiusViolations  int
	HotspotsReturned  int
	CatalogHotspots   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// Violations is the total number of failed checks.
func (s *Stats) Violations() int {
	return s.Mismatched + s.OrderViolations + s.SpacingViolations + s.RadiusViolations
}
