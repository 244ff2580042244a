package config

// DefaultProject is the project used when the config does not name one.
const DefaultProject = "nyc_airbnb"

const (
	// DatePolicyStrict fails the run on the first malformed date.
	DatePolicyStrict = "strict"

	// DatePolicyCoerce turns malformed dates into the null date.
	DatePolicyCoerce = "coerce"
)

// Cleaning settings
type Cleaning struct {
	DatePolicy        string `json:"date_policy"`
	AllowMissingPrice bool   `json:"allow_missing_price"`
}

// Tracking settings
type Tracking struct {
	// MetricsFile is where to write the Prometheus textfile at the
	// end of each run. Empty disables writing.
	MetricsFile string `json:"metrics_file"`
}

// Store settings
type Store struct {
	ShowProgress bool `json:"show_progress"`
}
