/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// humanReadableSize formats n bytes in SI units, e.g. "1.5 kB".
func humanReadableSize(n int64) string {
	const units = "kMGTPE"

	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	i := -1
	for (v >= 1000 || v <= -1000) && i < len(units)-1 {
		v /= 1000
		i++
	}

	return fmt.Sprintf("%.1f %cB", v, units[i])
}
