package models

// StageTiming is one stage span of one file in a pipeline run, as stored in the
// timing history database. Start and End are seconds since the run started.
type StageTiming struct {
	Model
	RunID     string `gorm:"index;not null"`
	FileIndex int    `gorm:"not null"`
	Stage     string `gorm:"not null"`
	Start     float64
	End       float64
}

// RunSummary is a stored run as listed by the timing history.
type RunSummary struct {
	RunID   string
	Files   int
	Records int
	Latest  float64
}
