package views

// Schema identifies an output layout for column lookups.
type Schema int

const (
	SchemaText Schema = iota
	SchemaCSV
	SchemaSamples
)

var schemaNames = map[Schema]string{
	SchemaText:    "text",
	SchemaCSV:     "csv",
	SchemaSamples: "samples",
}

func (s Schema) String() string {
	if n, ok := schemaNames[s]; ok {
		return n
	}
	return "unknown"
}

// SchemaColumns is the canonical column order for each layout. The CSV
// and sample layouts must match the models' CSVHeader methods.
var SchemaColumns = map[Schema][]string{
	SchemaText: {
		"generation", "timestamp_ns",
		"linear_x", "linear_y", "linear_z",
	},
	SchemaCSV: {
		"generation", "timestamp_ns",
		"linear_x", "linear_y", "linear_z",
		"azimuth", "pitch", "roll",
	},
	SchemaSamples: {
		"generation", "timestamp_ns",
		"accel_x", "accel_y", "accel_z",
		"gyro_x", "gyro_y", "gyro_z",
		"mag_x", "mag_y", "mag_z",
	},
}
