package project

// The binding store cannot hold empty strings, so empty project names and
// auxiliary paths are stored as these placeholders. Neither can be a real
// project name or path.
const (
	EmptyProjectName = "##no_project_name##"
	EmptyAuxPath     = "##no_path##"
)

// ToStored replaces empty values with their placeholders before a write.
func ToStored(projectName, auxPath string) (string, string) {
	if projectName == "" {
		projectName = EmptyProjectName
	}
	if auxPath == "" {
		auxPath = EmptyAuxPath
	}
	return projectName, auxPath
}

// FromStored replaces placeholders with empty values after a read.
func FromStored(projectName, auxPath string) (string, string) {
	if projectName == EmptyProjectName {
		projectName = ""
	}
	if auxPath == EmptyAuxPath {
		auxPath = ""
	}
	return projectName, auxPath
}
