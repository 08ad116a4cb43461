package models

// XcodeProjectInfo is the output of `xcodebuild -list -json`.
// Only one of Project and Workspace is filled depending on what was listed.
type XcodeProjectInfo struct {
	Project   *XcodeProject   `json:"project,omitempty"`
	Workspace *XcodeWorkspace `json:"workspace,omitempty"`
}

type XcodeProject struct {
	Name           string   `json:"name"`
	Configurations []string `json:"configurations"`
	Schemes        []string `json:"schemes"`
	Targets        []string `json:"targets"`
}

type XcodeWorkspace struct {
	Name    string   `json:"name"`
	Schemes []string `json:"schemes"`
}

// Schemes returns the schemes of whichever container was listed
func (info XcodeProjectInfo) Schemes() []string {
	if info.Workspace != nil && len(info.Workspace.Schemes) > 0 {
		return info.Workspace.Schemes
	}
	if info.Project != nil {
		return info.Project.Schemes
	}
	return nil
}
