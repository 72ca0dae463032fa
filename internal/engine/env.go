// Package engine invokes the external coding execution engine as a
// supervised subprocess.
package engine

import (
	"os"
	"os/exec"
	"path/filepath"
)

// foremanTmpDir is a clean temp directory for engine invocations. A
// dedicated directory keeps editor socket files out of the child's TMPDIR,
// which some engine CLIs choke on.
var foremanTmpDir string

func init() {
	foremanTmpDir = filepath.Join(os.TempDir(), "foreman-engine")
	os.MkdirAll(foremanTmpDir, 0755)
}

// passthroughVars are the only host variables the child inherits when no
// explicit value is declared for them. Everything else must be declared on
// the runner's Env map, so engine behaviour never depends on ambient shell
// configuration.
var passthroughVars = []string{"PATH", "HOME", "USER", "LANG", "TERM"}

// setDeclaredEnv builds the child environment from the declared map plus
// the passthrough allowlist, and pins TMPDIR to the clean directory.
func setDeclaredEnv(cmd *exec.Cmd, declared map[string]string) {
	env := make([]string, 0, len(passthroughVars)+len(declared)+1)

	for _, key := range passthroughVars {
		if _, overridden := declared[key]; overridden {
			continue
		}
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}

	for key, val := range declared {
		if key == "TMPDIR" {
			continue
		}
		env = append(env, key+"="+val)
	}

	env = append(env, "TMPDIR="+foremanTmpDir)
	cmd.Env = env
}

// CleanTmpDir returns the clean temp directory used for engine invocations.
func CleanTmpDir() string {
	return foremanTmpDir
}
