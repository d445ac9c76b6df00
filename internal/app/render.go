package app

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/vk/crewplan/internal/schedule"
)

// renderSchedule prints the schedule table the way the original host logged
// it: one row per assignment, ordered by (start, name), with the makespan on
// top.
func (a *App) renderSchedule(sched *schedule.Schedule) {
	title := color.New(color.Bold, color.FgGreen)
	header := color.New(color.Bold)
	dim := color.New(color.Faint)

	title.Fprintf(a.outW, "Schedule built. Total time: %d min (%.2f h)\n\n",
		sched.Makespan, sched.MakespanHours)

	header.Fprintf(a.outW, "%-25s %8s %8s %6s   %s\n",
		"Operation", "Start", "End", "Dur.", "Workers")
	dim.Fprintln(a.outW, strings.Repeat("-", 70))

	for _, as := range sched.Assignments {
		workers := "-"
		if len(as.Workers) > 0 {
			workers = strings.Join(as.Workers, ", ")
		}
		fmt.Fprintf(a.outW, "%-25s %8d %8d %6d   %s\n",
			as.OperationName, as.Start, as.End, as.Duration, workers)
	}
}
