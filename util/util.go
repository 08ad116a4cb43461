package util

import (
	"encoding/json"

	"github.com/shamanec/GADS-xctest-runner/logger"
)

// ConvertToJSONString returns data as indented JSON
func ConvertToJSONString(data interface{}) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		logger.RunnerLogger.LogError("convert_interface_to_json", "Could not marshal interface to json: "+err.Error())
		return "", err
	}
	return string(b), nil
}
