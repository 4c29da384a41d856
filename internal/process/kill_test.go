package process

import "testing"

// Real termination is covered by browser shutdown in the exporter; here we
// only check that bogus pids are harmless. PID 0 would target our own group
// without the guard.
func TestKillProcessGroup_IgnoresInvalidPIDs(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1, 999999999} {
		KillProcessGroup(pid)
	}
}
