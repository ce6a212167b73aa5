package process

// Notes:
// - KillProcessGroup with real children is covered by the engine package
//   timeout tests, which spawn a sleeping shell and assert it is reaped.
// - Here we only check the guard rails and that a dead group is not an error.

import (
	"errors"
	"os/exec"
	"runtime"
	"testing"
)

// ---------------------------------------------------------------------------
// TestKillProcessGroup - Guard rails
// ---------------------------------------------------------------------------

func TestKillProcessGroup_RejectsNonPositivePID(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1, -4242} {
		if err := KillProcessGroup(pid); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("KillProcessGroup(%d) = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestKillProcessGroup_ExitedGroup(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("process groups are unix-specific")
	}

	cmd := exec.Command("true")
	Isolate(cmd)
	if err := cmd.Run(); err != nil {
		t.Fatalf("running true: %v", err)
	}

	if err := KillProcessGroup(cmd.Process.Pid); err != nil {
		t.Errorf("KillProcessGroup(exited) = %v, want nil", err)
	}
}

// ---------------------------------------------------------------------------
// TestIsolate
// ---------------------------------------------------------------------------

func TestIsolate_SetsAttributes(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	Isolate(cmd)
	if cmd.SysProcAttr == nil {
		t.Fatal("SysProcAttr is nil after Isolate")
	}
}
