package models

import "time"

const (
	RunStatusRunning = "running"
	RunStatusPassed  = "passed"
	RunStatusFailed  = "failed"
	RunStatusErrored = "errored"
)

// TestRun is the record kept for every `xcodebuild test` invocation
type TestRun struct {
	ID                string    `json:"id" rethinkdb:"id"`
	Host              string    `json:"host" rethinkdb:"host"`
	Workspace         string    `json:"workspace,omitempty" rethinkdb:"workspace,omitempty"`
	Project           string    `json:"project,omitempty" rethinkdb:"project,omitempty"`
	Scheme            string    `json:"scheme" rethinkdb:"scheme"`
	Destination       string    `json:"destination,omitempty" rethinkdb:"destination,omitempty"`
	DeviceUDID        string    `json:"device_udid,omitempty" rethinkdb:"device_udid,omitempty"`
	Status            string    `json:"status" rethinkdb:"status"`
	ExitCode          int       `json:"exit_code" rethinkdb:"exit_code"`
	Error             string    `json:"error,omitempty" rethinkdb:"error,omitempty"`
	ResultBundlePath  string    `json:"result_bundle_path,omitempty" rethinkdb:"result_bundle_path,omitempty"`
	ResultBundleZip   string    `json:"result_bundle_zip,omitempty" rethinkdb:"result_bundle_zip,omitempty"`
	RecordingPath     string    `json:"recording_path,omitempty" rethinkdb:"recording_path,omitempty"`
	UploadedArtifacts []string  `json:"uploaded_artifacts,omitempty" rethinkdb:"uploaded_artifacts,omitempty"`
	StartedAt         time.Time `json:"started_at" rethinkdb:"started_at"`
	FinishedAt        time.Time `json:"finished_at,omitempty" rethinkdb:"finished_at,omitempty"`
}
