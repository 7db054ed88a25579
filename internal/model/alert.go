package model

import "time"

// MetricKey is the stable identifier of a monitored quantity.
type MetricKey string

const (
	MetricCPUPercent     MetricKey = "cpu_percent"
	MetricMemPercent     MetricKey = "mem_percent"
	MetricDiskPercent    MetricKey = "disk_percent"
	MetricGPUPercent     MetricKey = "gpu_percent"
	MetricCPUSustained   MetricKey = "cpu_sustained"
	MetricCPUTemperature MetricKey = "cpu_temperature"
)

// Severity ranks a fired alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertRule fires when the metric named by Key is >= Threshold.
type AlertRule struct {
	Key       MetricKey `json:"key"`
	Threshold float64   `json:"threshold"`
	Severity  Severity  `json:"severity"`
}

// Exceeded reports whether v meets or crosses the rule's threshold.
func (r AlertRule) Exceeded(v float64) bool { return v >= r.Threshold }

// FiredAlert is produced per check and never persisted.
type FiredAlert struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Key      MetricKey `json:"metric_key"`
	Value    float64   `json:"value"`
	Subject  string    `json:"subject,omitempty"` // disk mount or GPU name
	FiredAt  time.Time `json:"fired_at"`
}
