/*
 * Copyright (c) 2026. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZVC project.
 *
 * MZVC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package control

import "github.com/pkg/errors"

// Method selects how a set of temperatures is folded into one value.
type Method string

const (
	AggregateAverage  Method = "average"
	AggregateMinimum  Method = "minimum"
	AggregateMaximum  Method = "maximum"
	AggregateWeighted Method = "weighted"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case AggregateAverage, AggregateMinimum, AggregateMaximum, AggregateWeighted:
		return Method(s), nil
	}
	return "", errors.Errorf("unknown aggregation method `%v`", s)
}

// Aggregate folds values into a single temperature. The weighted method
// interpolates min..avg for weight 0..50 and avg..max for weight 50..100,
// so 0/50/100 reproduce minimum/average/maximum exactly. The second return
// is false for an empty input: callers must treat that as "no value", never
// as zero.
func Aggregate(values []float64, method Method, weight int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	minV, maxV, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}
	avg := sum / float64(len(values))

	switch method {
	case AggregateMinimum:
		return minV, true
	case AggregateMaximum:
		return maxV, true
	case AggregateAverage:
		return avg, true
	default:
		if weight <= 50 {
			ratio := float64(weight) / 50.0
			return minV + (avg-minV)*ratio, true
		}
		ratio := float64(weight-50) / 50.0
		return avg + (maxV-avg)*ratio, true
	}
}
