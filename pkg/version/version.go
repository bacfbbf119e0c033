package version

import "fmt"

// EditorVersion indicates what version of the editor the binary belongs to
var EditorVersion string

// GitCommit indicates which git commit the binary was built from
var GitCommit string

// String returns a pretty string concatenation of EditorVersion and GitCommit
func String() string {
	return fmt.Sprintf("CSV Editor Version: %s\nGit commit: %s\n", EditorVersion, GitCommit)
}
