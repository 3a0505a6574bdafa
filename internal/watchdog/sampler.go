package watchdog

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// proc is one row of a process table snapshot.
type proc struct {
	pid  int
	ppid int
	pgid int
	rss  uint64 // bytes
}

// sumGroup returns the resident memory of every process in pgid plus every
// descendant of self. Browser helpers may start their own process groups,
// so membership by ancestry is counted too.
func sumGroup(procs []proc, self, pgid int) uint64 {
	children := make(map[int][]int, len(procs))
	byPID := make(map[int]proc, len(procs))
	for _, p := range procs {
		byPID[p.pid] = p
		children[p.ppid] = append(children[p.ppid], p.pid)
	}

	seen := make(map[int]bool, len(procs))
	var total uint64
	add := func(pid int) {
		if seen[pid] {
			return
		}
		if p, ok := byPID[pid]; ok {
			seen[pid] = true
			total += p.rss
		}
	}

	for _, p := range procs {
		if p.pgid == pgid {
			add(p.pid)
		}
	}

	queue := []int{self}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		add(pid)
		for _, child := range children[pid] {
			if !seen[child] {
				queue = append(queue, child)
			}
		}
	}
	return total
}

// parsePS parses `ps -eo pid=,ppid=,pgid=,rss=` output. RSS is reported in
// KiB. Malformed lines are skipped; output with no usable line is an error.
func parsePS(out []byte) ([]proc, error) {
	var procs []proc
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 4 {
			continue
		}
		var nums [4]uint64
		ok := true
		for i, f := range fields {
			n, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				ok = false
				break
			}
			nums[i] = n
		}
		if !ok {
			continue
		}
		procs = append(procs, proc{
			pid:  int(nums[0]),
			ppid: int(nums[1]),
			pgid: int(nums[2]),
			rss:  nums[3] * 1024,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ps output: %w", err)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes in ps output")
	}
	return procs, nil
}
