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

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFollowsSetLogLevel(t *testing.T) {
	prev := Level()
	defer SetLogLevel(prev)

	assert.Equal(t, zapcore.InfoLevel, prev, "default threshold")

	SetLogLevel(zapcore.DebugLevel)
	assert.Equal(t, zapcore.DebugLevel, Level())

	SetLogLevel(zapcore.WarnLevel)
	assert.Equal(t, zapcore.WarnLevel, Level())
}
