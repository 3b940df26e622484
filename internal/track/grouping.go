// Trackwatch - Fleet Track Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackwatch

package track

import (
	"fmt"
	"time"
)

// GroupConsecutive merges immediately-adjacent anomalies of the identical
// type into display groups. Two anomalies are adjacent when no anomaly of
// a different type sits between them in the ordered list: simple
// run-length grouping, not distance or time based.
//
// The transform is presentation-only and idempotent: grouping the
// flattened output of a previous grouping reproduces the same groups.
func GroupConsecutive(anomalies []Anomaly) []GroupedAnomaly {
	if len(anomalies) == 0 {
		return nil
	}

	var groups []GroupedAnomaly
	start := 0
	for i := 1; i <= len(anomalies); i++ {
		if i < len(anomalies) && anomalies[i].Type == anomalies[start].Type {
			continue
		}
		groups = append(groups, newGroup(anomalies[start:i]))
		start = i
	}
	return groups
}

// newGroup builds one GroupedAnomaly from a nonempty same-type run.
func newGroup(run []Anomaly) GroupedAnomaly {
	first, last := run[0], run[len(run)-1]
	return GroupedAnomaly{
		Type:         first.Type,
		FirstAnomaly: first,
		LastAnomaly:  last,
		Count:        len(run),
		StartPoint:   first.StartPoint,
		EndPoint:     last.EndPoint,
		Description:  groupDescription(first.Type, len(run), first.StartPoint.Timestamp, last.EndPoint.Timestamp),
	}
}

// groupDescription synthesizes the multi-line panel text for a group.
func groupDescription(t AnomalyType, count int, start, end time.Time) string {
	const stamp = "02.01.2006 15:04:05"
	if count == 1 {
		return fmt.Sprintf("%s\n%s — %s", t, start.Format(stamp), end.Format(stamp))
	}
	return fmt.Sprintf("%s\nrepeated %d times between %s and %s", t, count, start.Format(stamp), end.Format(stamp))
}
